package institution

import (
	"context"
	"fmt"
	"strings"

	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Sheet column headers as they appear in the institutions spreadsheet.
// The sheet is hand-maintained, so headers carry stray whitespace.
const (
	institutionHeader = "מוסד"
	contractHeader    = "מספר חוזה"
)

// SheetsProvider fetches the mapping from a Google spreadsheet.
type SheetsProvider struct {
	SpreadsheetID   string
	ReadRange       string
	CredentialsFile string
	APIKey          string
	log             logging.Logger
}

// NewSheetsProvider creates a provider for the given spreadsheet. Exactly
// one of credentialsFile or apiKey should be set; both empty falls back to
// application default credentials.
func NewSheetsProvider(spreadsheetID, readRange, credentialsFile, apiKey string, log logging.Logger) *SheetsProvider {
	return &SheetsProvider{
		SpreadsheetID:   spreadsheetID,
		ReadRange:       readRange,
		CredentialsFile: credentialsFile,
		APIKey:          apiKey,
		log:             log,
	}
}

// Fetch downloads the sheet range and builds the contract-number mapping.
func (p *SheetsProvider) Fetch(ctx context.Context) (map[string]string, error) {
	if p.SpreadsheetID == "" {
		return nil, &scrapeerror.CollaboratorError{
			Collaborator: "institution map",
			Err:          fmt.Errorf("no spreadsheet id configured"),
		}
	}

	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	switch {
	case p.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(p.CredentialsFile))
	case p.APIKey != "":
		opts = append(opts, option.WithAPIKey(p.APIKey))
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, &scrapeerror.CollaboratorError{
			Collaborator: "institution map",
			Err:          fmt.Errorf("building sheets client: %w", err),
		}
	}

	p.log.Info("fetching institution map from Google Sheets",
		logging.F("spreadsheet_id", p.SpreadsheetID))

	resp, err := service.Spreadsheets.Values.Get(p.SpreadsheetID, p.ReadRange).Context(ctx).Do()
	if err != nil {
		return nil, &scrapeerror.CollaboratorError{
			Collaborator: "institution map",
			Err:          fmt.Errorf("reading range %q: %w", p.ReadRange, err),
		}
	}

	mapping, err := buildMapping(resp.Values)
	if err != nil {
		return nil, &scrapeerror.CollaboratorError{Collaborator: "institution map", Err: err}
	}

	p.log.Info("loaded institution mappings", logging.F(logging.FieldCount, len(mapping)))
	return mapping, nil
}

// buildMapping converts the raw sheet values into contract→institution.
// The first row is the header; the two columns are located by trimmed name
// so column reordering in the sheet does not break the mapping.
func buildMapping(values [][]interface{}) (map[string]string, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("sheet range is empty")
	}

	instIdx, contractIdx := -1, -1
	for i, cell := range values[0] {
		switch strings.TrimSpace(fmt.Sprint(cell)) {
		case institutionHeader:
			instIdx = i
		case contractHeader:
			contractIdx = i
		}
	}
	if instIdx < 0 || contractIdx < 0 {
		return nil, fmt.Errorf("sheet header is missing %q or %q columns", institutionHeader, contractHeader)
	}

	mapping := make(map[string]string)
	for _, row := range values[1:] {
		if len(row) <= instIdx || len(row) <= contractIdx {
			continue
		}
		contract := strings.TrimSpace(fmt.Sprint(row[contractIdx]))
		name := strings.TrimSpace(fmt.Sprint(row[instIdx]))
		if contract == "" {
			continue
		}
		mapping[contract] = name
	}
	if len(mapping) == 0 {
		return nil, fmt.Errorf("sheet range has no usable mapping rows")
	}
	return mapping, nil
}
