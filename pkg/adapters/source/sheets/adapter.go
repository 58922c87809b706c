// Package sheets implements the Google Sheets source adapter. A poll reads
// one spreadsheet range: the first row is the header, every following row a
// record. Requests go through a token-bucket rate limiter kept well under
// Google's per-user read quota.
package sheets

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/models"
)

const defaultRange = "A1:ZZ"

const googleTokenURL = "https://oauth2.googleapis.com/token"

// Adapter polls Google Sheets spreadsheets.
type Adapter struct {
	limiter *rate.Limiter

	// newService is swapped in tests to avoid real API clients.
	newService func(ctx context.Context, config source.Config, secrets source.Secrets) (valuesGetter, error)
}

// valuesGetter is the one Sheets API call the adapter makes.
type valuesGetter interface {
	Get(ctx context.Context, spreadsheetID, readRange string) (*gsheets.ValueRange, error)
}

type sheetsService struct {
	svc *gsheets.Service
}

func (s *sheetsService) Get(ctx context.Context, spreadsheetID, readRange string) (*gsheets.ValueRange, error) {
	return s.svc.Spreadsheets.Values.Get(spreadsheetID, readRange).Context(ctx).Do()
}

// New creates a Google Sheets source adapter. The limiter stays below the
// Sheets API per-user read quota of 60 requests per minute.
func New() *Adapter {
	return &Adapter{
		limiter: rate.NewLimiter(rate.Limit(0.8), 3),
		newService: func(ctx context.Context, config source.Config, secrets source.Secrets) (valuesGetter, error) {
			if _, ok := config.StringField("token_url"); !ok {
				// Google's token endpoint is fixed; default it so a stored
				// refresh token actually refreshes.
				withDefault := make(source.Config, len(config)+1)
				for k, v := range config {
					withDefault[k] = v
				}
				withDefault["token_url"] = googleTokenURL
				config = withDefault
			}
			svc, err := gsheets.NewService(ctx,
				option.WithTokenSource(source.OAuth2TokenSource(ctx, config, secrets)))
			if err != nil {
				return nil, err
			}
			return &sheetsService{svc: svc}, nil
		},
	}
}

func (a *Adapter) ValidateConfig(config source.Config) error {
	if _, ok := config.StringField("spreadsheet_id"); !ok {
		return apperrors.New(apperrors.KindConfigValidation, "spreadsheet_id is required")
	}
	return nil
}

func (a *Adapter) ValidateSecrets(secrets source.Secrets) error {
	if secrets["access_token"] == "" && secrets["refresh_token"] == "" {
		return apperrors.New(apperrors.KindSecretValidation, "access_token or refresh_token is required")
	}
	if secrets["refresh_token"] != "" && (secrets["client_id"] == "" || secrets["client_secret"] == "") {
		return apperrors.New(apperrors.KindSecretValidation, "refresh_token requires client_id and client_secret")
	}
	return nil
}

func (a *Adapter) SupportsPolling() bool { return true }

func (a *Adapter) Poll(ctx context.Context, config source.Config, secrets source.Secrets) (any, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "rate limit wait")
	}

	svc, err := a.newService(ctx, config, secrets)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err, "create sheets client")
	}

	spreadsheetID, _ := config.StringField("spreadsheet_id")
	readRange := defaultRange
	if r, ok := config.StringField("range"); ok {
		readRange = r
	}

	resp, err := svc.Get(ctx, spreadsheetID, readRange)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindTransport, err,
			fmt.Sprintf("read spreadsheet %s range %s", spreadsheetID, readRange))
	}

	return valueRangeToTabular(spreadsheetID, resp), nil
}

// valueRangeToTabular turns a header row plus value rows into tabular output.
// Short rows are padded with empty strings; the format validator downstream
// decides whether that is acceptable.
func valueRangeToTabular(name string, vr *gsheets.ValueRange) models.Tabular {
	t := models.Tabular{Name: name}
	if vr == nil || len(vr.Values) == 0 {
		return t
	}

	header := make([]string, 0, len(vr.Values[0]))
	for _, cell := range vr.Values[0] {
		header = append(header, fmt.Sprint(cell))
	}
	t.Header = header

	for _, raw := range vr.Values[1:] {
		row := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(raw) {
				row[col] = raw[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

var _ source.Adapter = (*Adapter)(nil)
