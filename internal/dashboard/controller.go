// Package dashboard owns the refresh cycle and the dashboard state, and
// turns that state into the declarative View every surface renders.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"studiodash/internal/config"
	"studiodash/internal/fallback"
	appLog "studiodash/internal/log"
	"studiodash/internal/metrics"
	"studiodash/internal/model"
	"studiodash/internal/normalize"
)

// ErrAlreadyLoading is returned when a refresh is requested while another
// one is still in flight. Nothing is fetched and the state is unchanged.
var ErrAlreadyLoading = errors.New("dashboard: refresh already in progress")

// Fetcher retrieves the raw payload of the four dashboard endpoints.
// *dashapi.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, student string) (normalize.Payload, error)
}

// State is the explicit dashboard state. It is copied out of the
// Controller and never shared by reference.
type State struct {
	Dataset    model.Dataset
	Mode       metrics.Mode
	Filter     string
	WeekOffset int
	Seq        uint64
	LoadedAt   time.Time
	Loading    bool
	// LastError is the message of the last fetch failure that caused the
	// demo dataset to be installed; empty after a successful refresh.
	LastError string
}

// Result describes one completed refresh.
type Result struct {
	ID      string
	Seq     uint64
	Source  model.Source
	Applied bool
	// FetchErr is set when the fetch failed and demo data was installed.
	FetchErr error
}

// Controller runs guarded refreshes against a Fetcher.
type Controller struct {
	fetcher Fetcher
	now     func() time.Time

	mu       sync.Mutex
	inflight int
	issued   uint64
	state    State
}

// NewController starts with an empty API dataset and the given filter.
func NewController(f Fetcher, filter string) *Controller {
	if filter == "" {
		filter = config.AllStudents
	}
	return &Controller{
		fetcher: f,
		now:     time.Now,
		state: State{
			Dataset: model.Dataset{
				Source:        model.SourceAPI,
				Filters:       []string{},
				Events:        []model.Event{},
				Subscriptions: []model.Subscription{},
			},
			Mode:   metrics.ModeServer,
			Filter: filter,
		},
	}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Loading = c.inflight > 0
	return st
}

// Loading reports whether a refresh is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight > 0
}

// Refresh fetches and installs a new dataset. Overlapping calls are
// dropped with ErrAlreadyLoading. A fetch failure is not an error: the
// demo dataset is installed and reported through Result.FetchErr.
func (c *Controller) Refresh(ctx context.Context) (Result, error) {
	return c.refresh(ctx, false)
}

// SetFilter selects the student filter and refreshes. It supersedes a
// refresh already in flight, whose result is then discarded on arrival.
func (c *Controller) SetFilter(ctx context.Context, student string) (Result, error) {
	if student == "" {
		student = config.AllStudents
	}
	c.mu.Lock()
	c.state.Filter = student
	c.mu.Unlock()
	return c.refresh(ctx, true)
}

// ShiftWeek moves the visible week by n weeks and returns the new offset.
func (c *Controller) ShiftWeek(n int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.WeekOffset += n
	return c.state.WeekOffset
}

// ResetWeek returns to the week containing today.
func (c *Controller) ResetWeek() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.WeekOffset = 0
}

func (c *Controller) refresh(ctx context.Context, force bool) (Result, error) {
	c.mu.Lock()
	if c.inflight > 0 && !force {
		c.mu.Unlock()
		appLog.Debug("refresh skipped, already loading")
		return Result{}, ErrAlreadyLoading
	}
	c.inflight++
	c.issued++
	seq := c.issued
	student := c.state.Filter
	c.mu.Unlock()

	res := Result{ID: uuid.NewString(), Seq: seq}
	appLog.Info("refresh start", "refresh_id", res.ID, "seq", seq, "student", student)
	start := c.now()

	ds, err := c.load(ctx, student)
	res.Source = ds.Source
	res.FetchErr = err

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--

	if seq <= c.state.Seq {
		appLog.Warn("refresh result discarded, newer data already applied",
			"refresh_id", res.ID, "seq", seq, "applied_seq", c.state.Seq)
		return res, nil
	}

	c.state.Dataset = ds
	c.state.Seq = seq
	c.state.LoadedAt = c.now()
	if err != nil {
		c.state.Mode = metrics.ModeClient
		c.state.LastError = err.Error()
	} else {
		c.state.Mode = metrics.ModeServer
		c.state.LastError = ""
	}
	res.Applied = true

	appLog.Info("refresh done",
		"refresh_id", res.ID,
		"seq", seq,
		"source", ds.Source,
		"mode", c.state.Mode,
		"events", len(ds.Events),
		"subscriptions", len(ds.Subscriptions),
		"took", c.now().Sub(start).Round(time.Millisecond),
	)
	return res, nil
}

func (c *Controller) load(ctx context.Context, student string) (model.Dataset, error) {
	p, err := c.fetcher.Fetch(ctx, student)
	if err != nil {
		appLog.Error("refresh fetch failed, using demo data", err, "student", student)
		return fallback.Dataset(), err
	}
	return normalize.Normalize(p), nil
}
