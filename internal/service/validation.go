package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/civreg-api/internal/models"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
)

const minimumMarriageAge = 18

// AgeAt returns whole years elapsed between birth and at, computed as
// floor of whole months divided by twelve.
func AgeAt(birth, at time.Time) int {
	months := (at.Year()-birth.Year())*12 + int(at.Month()) - int(birth.Month())
	if at.Day() < birth.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months / 12
}

// sameDayOrBefore compares calendar dates ignoring the time of day.
func sameDayOrBefore(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad <= bd
}

// validateBirthDates enforces the temporal rules on a birth record. The first
// violated rule wins.
func validateBirthDates(record *models.BirthRecord, now time.Time) *appErrors.Error {
	if !sameDayOrBefore(record.DateOfBirth, now) {
		return appErrors.Fielded(appErrors.ErrValidation, "date_of_birth", "date of birth cannot be in the future")
	}
	if record.RegistrationDate.Before(record.DateOfBirth) {
		return appErrors.Fielded(appErrors.ErrValidation, "registration_date", "registration date cannot precede date of birth")
	}
	return nil
}

// validateMarriage enforces the relational and age rules on a marriage record
// against the looked-up spouse birth records.
func validateMarriage(record *models.MarriageRecord, groom, bride *models.BirthRecord, now time.Time) *appErrors.Error {
	if record.GroomID == record.BrideID {
		return appErrors.Fielded(appErrors.ErrValidation, "bride_id", "groom and bride must be different persons")
	}
	if !sameDayOrBefore(record.DateOfMarriage, now) {
		return appErrors.Fielded(appErrors.ErrValidation, "date_of_marriage", "date of marriage cannot be in the future")
	}
	if age := AgeAt(groom.DateOfBirth, record.DateOfMarriage); age < minimumMarriageAge {
		return appErrors.Fielded(appErrors.ErrValidation, "groom_id",
			fmt.Sprintf("groom must be at least %d years old at the date of marriage, was %d", minimumMarriageAge, age))
	}
	if age := AgeAt(bride.DateOfBirth, record.DateOfMarriage); age < minimumMarriageAge {
		return appErrors.Fielded(appErrors.ErrValidation, "bride_id",
			fmt.Sprintf("bride must be at least %d years old at the date of marriage, was %d", minimumMarriageAge, age))
	}
	w1 := strings.TrimSpace(record.Witness1Name)
	w2 := strings.TrimSpace(record.Witness2Name)
	if w1 != "" && w1 == w2 {
		return appErrors.Fielded(appErrors.ErrValidation, "witness2_name", "witnesses must be different persons")
	}
	return nil
}

// validateDeath enforces the temporal rules on a death record against the
// deceased's birth record.
func validateDeath(record *models.DeathRecord, deceased *models.BirthRecord, now time.Time) *appErrors.Error {
	if !sameDayOrBefore(record.DateOfDeath, now) {
		return appErrors.Fielded(appErrors.ErrValidation, "date_of_death", "date of death cannot be in the future")
	}
	if !record.DateOfDeath.After(deceased.DateOfBirth) {
		return appErrors.Fielded(appErrors.ErrValidation, "date_of_death", "date of death must be after the deceased's date of birth")
	}
	return nil
}
