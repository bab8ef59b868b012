package pdf

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jung-kurt/gofpdf"

	"legaltrainer/internal/models"
)

// Generator renders PDF reports.
type Generator interface {
	ProgressReport(w io.Writer, data ReportData) error
}

// ReportGenerator renders progress reports. With an empty or missing FontPath
// the built-in Helvetica (Latin-1 only) is used.
type ReportGenerator struct {
	FontPath string // путь до TTF, например "assets/fonts/DejaVuSans.ttf"
}

type ReportData struct {
	UserName    string
	GeneratedAt time.Time
	Summary     models.ProgressSummary
	Due         []models.UserProgress
}

func NewReportGenerator(fontPath string) *ReportGenerator {
	return &ReportGenerator{FontPath: fontPath}
}

func (g *ReportGenerator) ProgressReport(w io.Writer, data ReportData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Progress report", false)
	pdf.SetAuthor("Legal Trainer", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	font := g.setupFont(pdf)
	tr := func(s string) string { return s }
	if font == "Helvetica" {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.AddPage()

	// ===== Заголовок
	pdf.SetFont(font, "B", 18)
	pdf.CellFormat(0, 10, "Progress report", "", 1, "C", false, 0, "")
	pdf.SetFont(font, "", 12)
	sub := fmt.Sprintf("%s  -  %s", tr(data.UserName), data.GeneratedAt.Format("02.01.2006 15:04"))
	pdf.CellFormat(0, 7, sub, "", 1, "C", false, 0, "")
	g.hr(pdf)
	pdf.Ln(3)

	// ===== Сводка
	g.sectionTitle(pdf, font, "Summary")
	s := data.Summary
	g.kvLine(pdf, font, "Quiz attempts", fmt.Sprintf("%d", s.TotalAttempts))
	g.kvLine(pdf, font, "Average score", fmt.Sprintf("%d%%", s.AverageScore))
	g.kvLine(pdf, font, "Mastered topics", fmt.Sprintf("%d of %d", s.MasteredTopics, s.TrackedTopics))
	g.kvLine(pdf, font, "Due for review", fmt.Sprintf("%d", s.DueCount))
	pdf.Ln(2)
	g.hr(pdf)

	// ===== Очередь повторения
	g.sectionTitle(pdf, font, "Review queue")
	if len(data.Due) == 0 {
		pdf.SetFont(font, "", 11)
		pdf.MultiCell(0, 6, "Nothing is due. Well done!", "", "L", false)
	} else {
		pdf.SetFont(font, "B", 11)
		pdf.CellFormat(40, 7, "Topic", "B", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, "Level", "B", 0, "C", false, 0, "")
		pdf.CellFormat(0, 7, "Next review", "B", 1, "L", false, 0, "")
		pdf.SetFont(font, "", 11)
		for _, p := range data.Due {
			next := "now"
			if p.NextReview != nil {
				next = p.NextReview.Format("02.01.2006")
			}
			pdf.CellFormat(40, 6, fmt.Sprintf("#%d", p.TopicID), "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, fmt.Sprintf("%d / 5", p.MasteryLevel), "", 0, "C", false, 0, "")
			pdf.CellFormat(0, 6, next, "", 1, "L", false, 0, "")
		}
	}

	// ===== Нумерация страниц
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont(font, "", 10)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	return pdf.Output(w)
}

func (g *ReportGenerator) setupFont(pdf *gofpdf.Fpdf) string {
	if g.FontPath == "" {
		return "Helvetica"
	}
	if _, err := os.Stat(g.FontPath); err != nil {
		return "Helvetica"
	}
	// AddUTF8Font принимает путь до TTF
	pdf.AddUTF8Font("DejaVu", "", g.FontPath)
	pdf.AddUTF8Font("DejaVu", "B", g.FontPath)
	return "DejaVu"
}

func (g *ReportGenerator) sectionTitle(pdf *gofpdf.Fpdf, font, s string) {
	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont(font, "", 11)
}

func (g *ReportGenerator) kvLine(pdf *gofpdf.Fpdf, font, key, val string) {
	pdf.SetFont(font, "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont(font, "", 11)
	pdf.CellFormat(0, 6, val, "", 1, "L", false, 0, "")
}

func (g *ReportGenerator) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
