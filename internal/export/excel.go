package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"workshop-tickets/internal/models"
)

const sheetName = "Tickets"

// timestamps in the sheet are rendered for the people at the door, in
// the workshop's local zone
const timeLayout = "01/02/2006, 15:04:05"

var headers = []interface{}{
	"Name", "Student ID", "Email", "Ticket Reference", "Is Used", "Sold At", "Used At",
}

// BuildWorkbook renders a ticket slice into an xlsx workbook.
func BuildWorkbook(tickets []models.Ticket, loc *time.Location) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i, ticket := range tickets {
		row := []interface{}{
			ticket.Name,
			ticket.StudentID,
			ticket.Email,
			ticket.Reference(),
			ticket.IsUsed,
			ticket.CreatedAt.In(loc).Format(timeLayout),
			ticket.UpdatedAt.In(loc).Format(timeLayout),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	return f, nil
}

// WriteWorkbook streams the workbook and releases its resources.
func WriteWorkbook(f *excelize.File, w io.Writer) error {
	defer f.Close()
	return f.Write(w)
}

// Filename returns the attachment name for an export taken now.
func Filename(now time.Time) string {
	return fmt.Sprintf("tickets_%s.xlsx", now.UTC().Format(time.RFC3339))
}
