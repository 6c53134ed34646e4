package admin

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"revops-backend/internal/assessments"
)

// ExportFilename is the attachment name of the CSV export.
const ExportFilename = "revops-assessments.csv"

const exportDelimiter = ';'

const utf8BOM = "\ufeff"

var exportHeader = []string{
	"id", "created_at", "lead_name", "lead_email", "lead_company", "lead_role",
	"score_strategy", "score_process", "score_data", "score_tech", "score_people", "score_journey",
	"score_overall", "maturity_level",
}

// EncodeCSV renders records as a BOM-prefixed, semicolon separated CSV document.
func EncodeCSV(records []assessments.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(utf8BOM)

	w := csv.NewWriter(&buf)
	w.Comma = exportDelimiter
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			str(r.LeadName),
			str(r.LeadEmail),
			str(r.LeadCompany),
			str(r.LeadRole),
			num(r.ScoreStrategy),
			num(r.ScoreProcess),
			num(r.ScoreData),
			num(r.ScoreTech),
			num(r.ScorePeople),
			num(r.ScoreJourney),
			num(r.ScoreOverall),
			r.MaturityLevel,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
