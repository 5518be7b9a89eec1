package cli

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/tools/funcprovider"
)

type currentTimeInput struct {
	Timezone string `json:"timezone,omitempty" jsonschema:"description=IANA time zone name such as Europe/Paris. The local zone if empty"`
}

// newBuiltinTools returns the in-process tools.
// A nil now uses time.Now.
func newBuiltinTools(now func() time.Time) *funcprovider.Provider {
	if now == nil {
		now = time.Now
	}

	p := funcprovider.New()
	funcprovider.MustAdd(p, "current_time", "Returns the current date and time in RFC 3339 format",
		func(_ context.Context, in *currentTimeInput) (string, error) {
			loc := time.Local
			if in.Timezone != "" {
				var err error
				loc, err = time.LoadLocation(in.Timezone)
				if err != nil {
					return "", errors.WithMessagef(err, "invalid timezone %q", in.Timezone)
				}
			}
			return now().In(loc).Format(time.RFC3339), nil
		})
	return p
}
