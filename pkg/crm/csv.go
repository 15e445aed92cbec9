package crm

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trace-crm-sync/pkg/models"
)

// csvHeader is the lead exchange column order for both export and import.
var csvHeader = []string{"Name", "Company", "Email", "Stage", "Value", "Owner", "LastActivity"}

// ExportLeadsCSV writes the caller's pipeline as CSV in insertion order.
func (s *Service) ExportLeadsCSV(uid string, w io.Writer) error {
	leads, err := s.ListLeads(uid)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, lead := range leads {
		row := []string{
			lead.Name,
			lead.Company,
			lead.Email,
			lead.Stage,
			strconv.FormatFloat(lead.Value, 'f', -1, 64),
			lead.Owner,
			lead.LastActivity,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportLeadsCSV appends leads parsed from CSV and returns how many were
// admitted. A header row matching the export format is skipped. Rows with
// fewer than three cells or a blank name are dropped rather than failing
// the whole import; a blank stage lands on the first stage of the active
// template and an unparseable value imports as zero.
func (s *Service) ImportLeadsCSV(uid string, r io.Reader) (int, error) {
	if err := requireUID(uid); err != nil {
		return 0, err
	}
	template, err := s.ActiveTemplate(uid)
	if err != nil {
		return 0, err
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	imported := 0
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("csv parse failed after %d leads: %w", imported, err)
		}

		if first {
			first = false
			if isHeaderRow(row) {
				continue
			}
		}
		if len(row) < 3 {
			continue
		}

		lead := models.LeadCreateRequest{
			Name:    strings.TrimSpace(row[0]),
			Company: strings.TrimSpace(row[1]),
			Email:   strings.TrimSpace(row[2]),
		}
		if lead.Name == "" {
			continue
		}
		if len(row) > 3 {
			stage := strings.TrimSpace(row[3])
			if stage != "" && template.HasStage(stage) {
				lead.Stage = stage
			}
		}
		if len(row) > 4 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(row[4]), 64); err == nil && 0 <= v {
				lead.Value = v
			}
		}
		if len(row) > 5 {
			lead.Owner = strings.TrimSpace(row[5])
		}
		if len(row) > 6 {
			lead.LastActivity = strings.TrimSpace(row[6])
		}

		if _, err := s.CreateLead(uid, lead); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(row[0]), csvHeader[0])
}
