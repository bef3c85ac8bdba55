package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// CertificateField is one labelled line on a certificate.
type CertificateField struct {
	Label string
	Value string
}

// CertificateDocument describes an official certificate to render.
type CertificateDocument struct {
	Title         string
	CertificateNo string
	Fields        []CertificateField
	IssuedBy      string
	IssueDate     string
}

// CertificatePDFExporter renders official certificate documents.
type CertificatePDFExporter struct{}

// NewCertificatePDFExporter constructs a certificate renderer.
func NewCertificatePDFExporter() *CertificatePDFExporter {
	return &CertificatePDFExporter{}
}

// Render produces the certificate PDF.
func (e *CertificatePDFExporter) Render(doc CertificateDocument) ([]byte, error) {
	if doc.Title == "" {
		return nil, fmt.Errorf("certificate requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, strings.ToUpper(doc.Title), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Certificate No: %s", doc.CertificateNo), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 12)
	for _, field := range doc.Fields {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(60, 9, field.Label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 9, field.Value, "", 1, "", false, 0, "")
	}

	pdf.Ln(12)
	pdf.SetFont("Arial", "I", 10)
	if doc.IssuedBy != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Issued by: %s", doc.IssuedBy), "", 1, "", false, 0, "")
	}
	if doc.IssueDate != "" {
		pdf.CellFormat(0, 7, fmt.Sprintf("Date of issue: %s", doc.IssueDate), "", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}
