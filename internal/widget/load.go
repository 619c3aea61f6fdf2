package widget

import (
	"context"
	"encoding/json"
	"time"

	"studiodash/internal/config"
	appLog "studiodash/internal/log"
	"studiodash/internal/model"
	"studiodash/internal/normalize"
)

// API is the subset of the dashboard API the widgets read.
// *dashapi.Client implements it.
type API interface {
	Subscriptions(ctx context.Context, student string) (json.RawMessage, error)
	Metrics(ctx context.Context, student string) (json.RawMessage, error)
}

// Loader fetches widget data under a hard timeout.
type Loader struct {
	api  API
	opts Options
	now  func() time.Time
}

// NewLoader builds a Loader. A zero timeout selects 10 seconds.
func NewLoader(api API, opts Options) *Loader {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Student == "" {
		opts.Student = config.AllStudents
	}
	return &Loader{api: api, opts: opts, now: time.Now}
}

// Progress loads subscriptions and metrics and builds the progress widget.
func (l *Loader) Progress(ctx context.Context, f Family) Progress {
	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	subs, err := l.api.Subscriptions(ctx, l.opts.Student)
	if err != nil {
		appLog.Error("widget progress fetch failed", err, "student", l.opts.Student)
		return ProgressError(f, nil, l.now())
	}
	// Metrics only decorate the widget; losing them is not an error.
	m, err := l.api.Metrics(ctx, l.opts.Student)
	if err != nil {
		appLog.Warn("widget progress metrics unavailable", "err", err.Error())
		m = nil
	}

	ds := model.Dataset{
		Subscriptions: normalize.Subscriptions(subs),
		Metrics:       normalize.Metrics(m),
	}
	return BuildProgress(ds, f, l.opts, l.now())
}

// Finance loads metrics and builds the finance widget.
func (l *Loader) Finance(ctx context.Context, f Family) Finance {
	ctx, cancel := context.WithTimeout(ctx, l.opts.Timeout)
	defer cancel()

	raw, err := l.api.Metrics(ctx, l.opts.Student)
	if err != nil {
		appLog.Error("widget finance fetch failed", err, "student", l.opts.Student)
		return FinanceError(f, l.now())
	}
	return BuildFinance(normalize.Metrics(raw), f, l.now())
}
