package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/civreg-api/internal/models"
	"github.com/noah-isme/civreg-api/internal/policy"
	appErrors "github.com/noah-isme/civreg-api/pkg/errors"
	"github.com/noah-isme/civreg-api/pkg/export"
	"github.com/noah-isme/civreg-api/pkg/storage"
)

// Repositories clamp page sizes, so exports walk pages at the clamp.
const exportPageSize = 100

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatJSON ExportFormat = "json"
	ExportFormatPDF  ExportFormat = "pdf"
)

// ExportType selects which record tables are exported.
type ExportType string

const (
	ExportTypeBirth    ExportType = "birth"
	ExportTypeMarriage ExportType = "marriage"
	ExportTypeDeath    ExportType = "death"
	ExportTypeAll      ExportType = "all"
)

// ExportRequest describes one export run.
type ExportRequest struct {
	Type   ExportType   `json:"type"`
	Format ExportFormat `json:"format"`
	Region string       `json:"region"`
	Year   int          `json:"year"`
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string       `json:"relative_path"`
	Token        string       `json:"token"`
	URL          string       `json:"url"`
	Format       ExportFormat `json:"format"`
	Rows         int          `json:"rows"`
	ExpiresAt    time.Time    `json:"expires_at"`
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

type exportBirthSource interface {
	List(ctx context.Context, filter models.BirthFilter) ([]models.BirthRecordDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.BirthRecordDetail, error)
}

type exportMarriageSource interface {
	List(ctx context.Context, filter models.MarriageFilter) ([]models.MarriageRecordDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.MarriageRecordDetail, error)
}

type exportDeathSource interface {
	List(ctx context.Context, filter models.DeathFilter) ([]models.DeathRecordDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.DeathRecordDetail, error)
}

type exportCertificateSource interface {
	FindByID(ctx context.Context, id string) (*models.Certificate, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type tableRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type certificateRenderer interface {
	Render(doc export.CertificateDocument) ([]byte, error)
}

// ExportService renders record exports to files served through signed URLs,
// and certificate PDFs served inline.
type ExportService struct {
	births       exportBirthSource
	marriages    exportMarriageSource
	deaths       exportDeathSource
	certificates exportCertificateSource
	storage      fileStorage
	csv          csvRenderer
	pdf          tableRenderer
	certPDF      certificateRenderer
	signer       *storage.SignedURLSigner
	logger       *zap.Logger
	cfg          ExportConfig
	now          func() time.Time
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Births       exportBirthSource
	Marriages    exportMarriageSource
	Deaths       exportDeathSource
	Certificates exportCertificateSource
	Storage      fileStorage
	Signer       *storage.SignedURLSigner
	Logger       *zap.Logger
	Config       ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := params.Config
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		births:       params.Births,
		marriages:    params.Marriages,
		deaths:       params.Deaths,
		certificates: params.Certificates,
		storage:      params.Storage,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		certPDF:      export.NewCertificatePDFExporter(),
		signer:       params.Signer,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Generate builds the requested dataset, renders it and stores the file.
// Non-admin actors only export what their listing scope allows.
func (s *ExportService) Generate(ctx context.Context, actor policy.Actor, req ExportRequest) (*ExportResult, error) {
	if !policy.CanViewAny(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}
	switch req.Format {
	case ExportFormatCSV, ExportFormatJSON, ExportFormatPDF:
	default:
		return nil, appErrors.Fielded(appErrors.ErrValidation, "format", "format must be csv, json or pdf")
	}
	switch req.Type {
	case ExportTypeBirth, ExportTypeMarriage, ExportTypeDeath, ExportTypeAll:
	default:
		return nil, appErrors.Fielded(appErrors.ErrValidation, "type", "type must be birth, marriage, death or all")
	}
	if req.Format == ExportFormatPDF && req.Type == ExportTypeAll {
		return nil, appErrors.Fielded(appErrors.ErrValidation, "format", "pdf exports cover a single record type")
	}

	region, officeID := policy.ListScope(actor)
	if region != "" {
		req.Region = region
	}

	births, marriages, deaths, err := s.loadRecords(ctx, req, officeID)
	if err != nil {
		return nil, err
	}
	rows := len(births) + len(marriages) + len(deaths)

	var payload []byte
	switch req.Format {
	case ExportFormatCSV:
		payload, err = s.renderCSV(req.Type, births, marriages, deaths)
	case ExportFormatJSON:
		payload, err = s.renderJSON(req.Type, births, marriages, deaths)
	case ExportFormatPDF:
		payload, err = s.renderPDF(req.Type, births, marriages, deaths)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := s.buildFilename(req)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(filename, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	s.logger.Info("export generated",
		zap.String("type", string(req.Type)),
		zap.String("format", string(req.Format)),
		zap.Int("rows", rows))

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/%s", prefix, token),
		Format:       req.Format,
		Rows:         rows,
		ExpiresAt:    expiresAt,
	}, nil
}

// CertificatePDF renders the printable certificate for download.
func (s *ExportService) CertificatePDF(ctx context.Context, actor policy.Actor, certificateID string) ([]byte, string, error) {
	cert, err := s.certificates.FindByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load certificate")
	}

	doc, scope, err := s.buildCertificateDocument(ctx, cert)
	if err != nil {
		return nil, "", err
	}
	if !policy.CanView(actor, scope) {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "")
	}

	payload, err := s.certPDF.Render(doc)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return payload, fmt.Sprintf("certificate_%s.pdf", sanitizeFilename(cert.CertificateNumber)), nil
}

// Open returns a handle to a stored export file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (name, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Cleanup removes files older than ttl, defaulting to the configured TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) loadRecords(ctx context.Context, req ExportRequest, officeID string) ([]models.BirthRecordDetail, []models.MarriageRecordDetail, []models.DeathRecordDetail, error) {
	var (
		births    []models.BirthRecordDetail
		marriages []models.MarriageRecordDetail
		deaths    []models.DeathRecordDetail
	)

	if req.Type == ExportTypeBirth || req.Type == ExportTypeAll {
		for page := 1; ; page++ {
			rows, total, err := s.births.List(ctx, models.BirthFilter{Region: req.Region, OfficeID: officeID, Year: req.Year, Page: page, PageSize: exportPageSize})
			if err != nil {
				return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load birth records")
			}
			births = append(births, rows...)
			if len(rows) == 0 || len(births) >= total {
				break
			}
		}
	}
	if req.Type == ExportTypeMarriage || req.Type == ExportTypeAll {
		for page := 1; ; page++ {
			rows, total, err := s.marriages.List(ctx, models.MarriageFilter{Region: req.Region, OfficeID: officeID, Year: req.Year, Page: page, PageSize: exportPageSize})
			if err != nil {
				return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load marriage records")
			}
			marriages = append(marriages, rows...)
			if len(rows) == 0 || len(marriages) >= total {
				break
			}
		}
	}
	if req.Type == ExportTypeDeath || req.Type == ExportTypeAll {
		for page := 1; ; page++ {
			rows, total, err := s.deaths.List(ctx, models.DeathFilter{Region: req.Region, OfficeID: officeID, Year: req.Year, Page: page, PageSize: exportPageSize})
			if err != nil {
				return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load death records")
			}
			deaths = append(deaths, rows...)
			if len(rows) == 0 || len(deaths) >= total {
				break
			}
		}
	}
	return births, marriages, deaths, nil
}

func (s *ExportService) renderCSV(exportType ExportType, births []models.BirthRecordDetail, marriages []models.MarriageRecordDetail, deaths []models.DeathRecordDetail) ([]byte, error) {
	switch exportType {
	case ExportTypeBirth:
		return s.csv.Render(birthDataset(births))
	case ExportTypeMarriage:
		return s.csv.Render(marriageDataset(marriages))
	case ExportTypeDeath:
		return s.csv.Render(deathDataset(deaths))
	}
	// "all" concatenates the three sections with blank lines between them.
	var parts [][]byte
	for _, ds := range []export.Dataset{birthDataset(births), marriageDataset(marriages), deathDataset(deaths)} {
		payload, err := s.csv.Render(ds)
		if err != nil {
			return nil, err
		}
		parts = append(parts, payload)
	}
	return bytes.Join(parts, []byte("\n")), nil
}

func (s *ExportService) renderPDF(exportType ExportType, births []models.BirthRecordDetail, marriages []models.MarriageRecordDetail, deaths []models.DeathRecordDetail) ([]byte, error) {
	switch exportType {
	case ExportTypeBirth:
		return s.pdf.Render(birthDataset(births), "Birth Records")
	case ExportTypeMarriage:
		return s.pdf.Render(marriageDataset(marriages), "Marriage Records")
	case ExportTypeDeath:
		return s.pdf.Render(deathDataset(deaths), "Death Records")
	}
	return nil, fmt.Errorf("pdf rendering requires a single record type")
}

func (s *ExportService) renderJSON(exportType ExportType, births []models.BirthRecordDetail, marriages []models.MarriageRecordDetail, deaths []models.DeathRecordDetail) ([]byte, error) {
	switch exportType {
	case ExportTypeBirth:
		return json.MarshalIndent(births, "", "  ")
	case ExportTypeMarriage:
		return json.MarshalIndent(marriages, "", "  ")
	case ExportTypeDeath:
		return json.MarshalIndent(deaths, "", "  ")
	}
	return json.MarshalIndent(map[string]interface{}{
		"birth_records":    births,
		"marriage_records": marriages,
		"death_records":    deaths,
	}, "", "  ")
}

func (s *ExportService) buildCertificateDocument(ctx context.Context, cert *models.Certificate) (export.CertificateDocument, policy.Scope, error) {
	doc := export.CertificateDocument{
		CertificateNo: cert.CertificateNumber,
		IssuedBy:      cert.IssuedBy,
		IssueDate:     cert.IssueDate.Format(xmlDateFormat),
	}

	switch cert.RecordType {
	case models.RecordTypeBirth:
		record, err := s.births.FindByID(ctx, cert.RecordID)
		if err != nil {
			return doc, policy.Scope{}, certificateRecordErr(err)
		}
		doc.Title = "Certificate of Birth"
		doc.Fields = []export.CertificateField{
			{Label: "Full name", Value: record.ChildName()},
			{Label: "Gender", Value: string(record.Gender)},
			{Label: "Date of birth", Value: record.DateOfBirth.Format(xmlDateFormat)},
			{Label: "Place of birth", Value: record.PlaceOfBirth},
			{Label: "Father", Value: record.FatherName},
			{Label: "Mother", Value: record.MotherName},
			{Label: "Nationality", Value: record.Nationality},
			{Label: "Registration office", Value: record.OfficeName},
			{Label: "Region", Value: record.OfficeRegion},
		}
		return doc, policy.Scope{OfficeID: record.OfficeID, Region: record.OfficeRegion}, nil
	case models.RecordTypeMarriage:
		record, err := s.marriages.FindByID(ctx, cert.RecordID)
		if err != nil {
			return doc, policy.Scope{}, certificateRecordErr(err)
		}
		doc.Title = "Certificate of Marriage"
		doc.Fields = []export.CertificateField{
			{Label: "Groom", Value: record.GroomName},
			{Label: "Bride", Value: record.BrideName},
			{Label: "Date of marriage", Value: record.DateOfMarriage.Format(xmlDateFormat)},
			{Label: "Place of marriage", Value: record.PlaceOfMarriage},
			{Label: "Witnesses", Value: record.Witness1Name + ", " + record.Witness2Name},
			{Label: "Registration office", Value: record.OfficeName},
			{Label: "Region", Value: record.OfficeRegion},
		}
		return doc, policy.Scope{OfficeID: record.OfficeID, Region: record.OfficeRegion}, nil
	case models.RecordTypeDeath:
		record, err := s.deaths.FindByID(ctx, cert.RecordID)
		if err != nil {
			return doc, policy.Scope{}, certificateRecordErr(err)
		}
		doc.Title = "Certificate of Death"
		doc.Fields = []export.CertificateField{
			{Label: "Full name", Value: record.DeceasedName},
			{Label: "Date of death", Value: record.DateOfDeath.Format(xmlDateFormat)},
			{Label: "Place of death", Value: record.PlaceOfDeath},
			{Label: "Cause of death", Value: record.CauseOfDeath},
			{Label: "Registration office", Value: record.OfficeName},
			{Label: "Region", Value: record.OfficeRegion},
		}
		return doc, policy.Scope{OfficeID: record.OfficeID, Region: record.OfficeRegion}, nil
	}
	return doc, policy.Scope{}, appErrors.Clone(appErrors.ErrInternal, "unknown certificate record type")
}

func certificateRecordErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "referenced record no longer exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load referenced record")
}

func (s *ExportService) buildFilename(req ExportRequest) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	parts := []string{string(req.Type)}
	if req.Region != "" {
		parts = append(parts, sanitizeFilename(req.Region))
	}
	if req.Year != 0 {
		parts = append(parts, fmt.Sprintf("%d", req.Year))
	}
	parts = append(parts, timestamp)
	return fmt.Sprintf("%s.%s", strings.Join(parts, "_"), req.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func birthDataset(rows []models.BirthRecordDetail) export.Dataset {
	headers := []string{"Certificate No", "Child Name", "Gender", "Date of Birth", "Place of Birth", "Father Name", "Mother Name", "Nationality", "Office", "Region", "Registration Date", "Status"}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Certificate No":    row.CertificateNo,
			"Child Name":        row.ChildName(),
			"Gender":            string(row.Gender),
			"Date of Birth":     row.DateOfBirth.Format(xmlDateFormat),
			"Place of Birth":    row.PlaceOfBirth,
			"Father Name":       row.FatherName,
			"Mother Name":       row.MotherName,
			"Nationality":       row.Nationality,
			"Office":            row.OfficeName,
			"Region":            row.OfficeRegion,
			"Registration Date": row.RegistrationDate.Format(xmlDateFormat),
			"Status":            string(row.Status),
		})
	}
	return export.Dataset{Headers: headers, Rows: dataRows}
}

func marriageDataset(rows []models.MarriageRecordDetail) export.Dataset {
	headers := []string{"Certificate No", "Groom", "Bride", "Date of Marriage", "Place of Marriage", "Office", "Region", "Registration Date", "Status"}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Certificate No":    row.CertificateNo,
			"Groom":             row.GroomName,
			"Bride":             row.BrideName,
			"Date of Marriage":  row.DateOfMarriage.Format(xmlDateFormat),
			"Place of Marriage": row.PlaceOfMarriage,
			"Office":            row.OfficeName,
			"Region":            row.OfficeRegion,
			"Registration Date": row.RegistrationDate.Format(xmlDateFormat),
			"Status":            string(row.Status),
		})
	}
	return export.Dataset{Headers: headers, Rows: dataRows}
}

func deathDataset(rows []models.DeathRecordDetail) export.Dataset {
	headers := []string{"Certificate No", "Deceased", "Date of Death", "Place of Death", "Cause of Death", "Office", "Region", "Registration Date", "Status"}
	dataRows := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		dataRows = append(dataRows, map[string]string{
			"Certificate No":    row.CertificateNo,
			"Deceased":          row.DeceasedName,
			"Date of Death":     row.DateOfDeath.Format(xmlDateFormat),
			"Place of Death":    row.PlaceOfDeath,
			"Cause of Death":    row.CauseOfDeath,
			"Office":            row.OfficeName,
			"Region":            row.OfficeRegion,
			"Registration Date": row.RegistrationDate.Format(xmlDateFormat),
			"Status":            string(row.Status),
		})
	}
	return export.Dataset{Headers: headers, Rows: dataRows}
}
