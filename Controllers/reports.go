package Controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"Warden/Models"
)

// ReportController exports execution history for offline fraud review.
type ReportController struct {
	DB *gorm.DB
}

func NewReportController(db *gorm.DB) *ReportController {
	return &ReportController{DB: db}
}

var reportHeaders = []string{
	"ID", "Status", "Worker", "Control Point", "Scanned At", "First Scan",
	"Second Scan", "Submitted At", "Duration (min)", "Quick Entry",
	"Deferred Entry", "Other Flags", "Observations", "Issues Found",
}

// ExportExecutions streams an xlsx of the filtered execution records. Same
// query filters as GET /api/executions.
// GET /api/reports/executions
func (rc *ReportController) ExportExecutions(c *fiber.Ctx) error {
	query := rc.DB.Where("tenant_id = ?", tenantID(c))
	query = applyExecutionFilters(query, c)

	var records []Models.ExecutionRecord
	if err := query.Order("scanned_at ASC").Find(&records).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to retrieve executions",
		})
	}

	workerNames := rc.namesByID(&Models.Worker{}, tenantID(c))
	pointNames := rc.namesByID(&Models.ControlPoint{}, tenantID(c))

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Executions"
	f.SetSheetName("Sheet1", sheet)

	for i, header := range reportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, rec := range records {
		values := []interface{}{
			rec.ID,
			string(rec.Status),
			workerNames[rec.WorkerID],
			pointNames[rec.ControlPointID],
			formatTime(&rec.ScannedAt),
			formatTime(rec.FirstScanAt),
			formatTime(rec.SecondScanAt),
			formatTime(rec.SubmittedAt),
			fmt.Sprintf("%.1f", float64(rec.ActualDurationSec)/60),
			rec.QuickEntry,
			rec.DeferredEntry,
			otherFlags(rec),
			rec.Observations,
			rec.IssuesFound,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Failed to build report",
		})
	}

	filename := fmt.Sprintf("executions_%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

// namesByID builds an id -> name lookup for workers or control points.
func (rc *ReportController) namesByID(model interface{}, tenant uint) map[uint]string {
	type row struct {
		ID   uint
		Name string
	}
	var rows []row
	rc.DB.Model(model).Where("tenant_id = ?", tenant).Select("id", "name").Scan(&rows)
	names := make(map[uint]string, len(rows))
	for _, r := range rows {
		names[r.ID] = r.Name
	}
	return names
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

func otherFlags(rec Models.ExecutionRecord) string {
	var flags string
	add := func(set bool, name string) {
		if !set {
			return
		}
		if flags != "" {
			flags += ", "
		}
		flags += name
	}
	add(rec.RepeatedValue, "repeated value")
	add(rec.OutOfRange, "out of range")
	add(rec.OCRDeviation, "ocr deviation")
	add(rec.SuspiciousValue, "suspicious value")
	return flags
}
