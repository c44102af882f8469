// Package extract captures the charge-details payload off the wire and
// parses it into a table. The click that triggers the request and the
// response listener must overlap, so the listener is armed before the
// action runs.
package extract

import (
	"errors"
	"strings"
	"time"

	"github.com/arieldaniely/AutoPagi/internal/institution"
	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/models"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
)

// Extractor correlates a UI action with the backend response carrying the
// charge-details HTML fragment.
type Extractor struct {
	// ResponseMarker and ResponseQuery must both appear in the response
	// URL for it to be the charge-details payload.
	ResponseMarker string
	ResponseQuery  string
	// TableID is the id of the details table inside the payload.
	TableID string
	// TimeoutMs bounds the wait for the correlated response.
	TimeoutMs float64

	log logging.Logger
}

// New creates an extractor.
func New(marker, query, tableID string, timeoutMs float64, log logging.Logger) *Extractor {
	return &Extractor{
		ResponseMarker: marker,
		ResponseQuery:  query,
		TableID:        tableID,
		TimeoutMs:      timeoutMs,
		log:            log,
	}
}

// CaptureTable arms the response listener, runs action, and parses the
// matched payload. The listener is active before action executes; a
// response arriving during the action is never missed.
func (e *Extractor) CaptureTable(page playwright.Page, action func() error) (models.Table, error) {
	predicate := func(resp playwright.Response) bool {
		url := resp.URL()
		return strings.Contains(url, e.ResponseMarker) && strings.Contains(url, e.ResponseQuery)
	}

	resp, err := page.ExpectResponse(predicate, action, playwright.PageExpectResponseOptions{
		Timeout: playwright.Float(e.TimeoutMs),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return models.Table{}, &scrapeerror.ActionTimeoutError{
				Action:  "await charge details response",
				Target:  e.ResponseMarker,
				Timeout: time.Duration(e.TimeoutMs) * time.Millisecond,
				Err:     err,
			}
		}
		return models.Table{}, err
	}

	if !resp.Ok() {
		return models.Table{}, &scrapeerror.ResponseStatusError{
			URL:    resp.URL(),
			Status: resp.Status(),
		}
	}
	e.log.Info("charge details response captured",
		logging.F(logging.FieldURL, resp.URL()),
		logging.F(logging.FieldStatus, resp.Status()))

	body, err := resp.Text()
	if err != nil {
		return models.Table{}, err
	}

	table, err := ParseChargesTable(body, e.TableID)
	if err != nil {
		return models.Table{}, err
	}
	e.log.Info("charge table parsed",
		logging.F(logging.FieldRows, len(table.Rows)),
		logging.F(logging.FieldColumns, len(table.Header)))
	return table, nil
}

// ParseChargesTable extracts the table with the given id from the HTML
// payload. Header cells come from thead, data rows from tbody; all cell
// text is whitespace-trimmed.
func ParseChargesTable(html, tableID string) (models.Table, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Table{}, err
	}

	sel := doc.Find("table#" + tableID)
	if sel.Length() == 0 {
		return models.Table{}, &scrapeerror.TableNotFoundError{TableID: tableID}
	}

	var table models.Table
	sel.First().Find("thead th").Each(func(_ int, th *goquery.Selection) {
		table.Header = append(table.Header, strings.TrimSpace(th.Text()))
	})
	sel.First().Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		if len(row) > 0 {
			table.Rows = append(table.Rows, row)
		}
	})
	return table, nil
}

// businessDetailsColumn is the position of the business-details cell in
// the charge table, whose last digits are the contract number.
const businessDetailsColumn = 2

// AppendInstitutionColumn widens every row with the institution name
// resolved through mapping by contract number, using notFound for rows
// with no match. An empty mapping leaves the table untouched so runs
// without the collaborator keep a stable shape.
func AppendInstitutionColumn(table *models.Table, mapping map[string]string, columnName, notFound string, log logging.Logger) {
	if len(mapping) == 0 {
		return
	}

	table.Header = append(table.Header, columnName)
	matched := 0
	for i, row := range table.Rows {
		name := notFound
		if len(row) > businessDetailsColumn {
			if found, ok := mapping[institution.ContractNumber(row[businessDetailsColumn])]; ok {
				name = found
				matched++
			}
		}
		table.Rows[i] = append(row, name)
	}
	log.Info("institution column appended",
		logging.F(logging.FieldRows, len(table.Rows)),
		logging.F("matched", matched))
}
