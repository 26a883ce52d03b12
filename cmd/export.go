package main

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadmail-cli/internal/model"
)

// leadRow is the flat export shape shared by the yaml and xlsx writers.
type leadRow struct {
	Company     string  `yaml:"company"`
	Score       float64 `yaml:"score"`
	Label       string  `yaml:"label"`
	Mentions    int     `yaml:"mentions"`
	Industry    string  `yaml:"industry,omitempty"`
	HQLocation  string  `yaml:"hq_location,omitempty"`
	Employees   int     `yaml:"employees,omitempty"`
	FoundedYear int     `yaml:"founded_year,omitempty"`
	Revenue     string  `yaml:"revenue,omitempty"`
	ProfileURL  string  `yaml:"profile_url,omitempty"`
}

func exportLeads(w io.Writer, leads []model.RankedCompany, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(leads); err != nil {
			return eris.Wrap(err, "encode json")
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		if err := enc.Encode(flattenLeads(leads)); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return nil
	case "xlsx":
		return exportXLSX(w, leads)
	default:
		return eris.Errorf("unsupported format: %s", format)
	}
}

func exportXLSX(w io.Writer, leads []model.RankedCompany) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "add sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{
		"Company", "Score", "Label", "Mentions", "Industry",
		"HQ Location", "Employees", "Founded", "Revenue", "Profile URL",
	} {
		header.AddCell().SetString(col)
	}

	for _, lead := range flattenLeads(leads) {
		row := sheet.AddRow()
		row.AddCell().SetString(lead.Company)
		row.AddCell().SetFloat(lead.Score)
		row.AddCell().SetString(lead.Label)
		row.AddCell().SetInt(lead.Mentions)
		row.AddCell().SetString(lead.Industry)
		row.AddCell().SetString(lead.HQLocation)
		row.AddCell().SetInt(lead.Employees)
		row.AddCell().SetInt(lead.FoundedYear)
		row.AddCell().SetString(lead.Revenue)
		row.AddCell().SetString(lead.ProfileURL)
	}

	if err := file.Write(w); err != nil {
		return eris.Wrap(err, "write workbook")
	}
	return nil
}

func flattenLeads(leads []model.RankedCompany) []leadRow {
	rows := make([]leadRow, 0, len(leads))
	for _, lead := range leads {
		row := leadRow{
			Company:  lead.Company.Name,
			Mentions: lead.Mentions,
		}
		if lead.Score != nil {
			row.Score = lead.Score.TotalScore
			row.Label = string(lead.Score.Label)
		}
		if lead.Profile != nil {
			row.Industry = lead.Profile.Industry
			row.HQLocation = lead.Profile.HQLocation
			row.Employees = lead.Profile.Employees
			row.FoundedYear = lead.Profile.FoundedYear
			row.Revenue = lead.Profile.Revenue
			row.ProfileURL = lead.Profile.SourceURL
		}
		rows = append(rows, row)
	}
	return rows
}
