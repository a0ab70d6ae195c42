// Package livesearch drives the search-as-you-type dropdown: it debounces
// keystrokes, fetches results, drops stale responses and tracks keyboard
// highlighting.
package livesearch

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/ecobuddy/locator/client"
	"github.com/ecobuddy/locator/models"
)

// State is the dropdown lifecycle stage.
type State int

const (
	Idle State = iota
	Debouncing
	Fetching
	Rendered
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Debouncing:
		return "debouncing"
	case Fetching:
		return "fetching"
	case Rendered:
		return "rendered"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// Key is a navigation key delivered to the dropdown.
type Key int

const (
	KeyArrowDown Key = iota
	KeyArrowUp
	KeyEnter
)

// Query is what the controller asks the fetcher for.
type Query struct {
	Keyword  string
	Category string
	Town     string
}

// Fetcher retrieves search results.
type Fetcher interface {
	Fetch(ctx context.Context, q Query) ([]models.Facility, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, q Query) ([]models.Facility, error)

func (f FetcherFunc) Fetch(ctx context.Context, q Query) ([]models.Facility, error) {
	return f(ctx, q)
}

// FromClient fetches through the API client.
func FromClient(c *client.Client) Fetcher {
	return FetcherFunc(func(ctx context.Context, q Query) ([]models.Facility, error) {
		return c.Search(ctx, q.Keyword, q.Category, q.Town)
	})
}

// Timer is the part of *time.Timer the controller needs.
type Timer interface {
	Stop() bool
}

// Snapshot is an immutable view for rendering. Version grows with every state
// change; OnChange never sees a lower Version after a higher one.
type Snapshot struct {
	Version     uint64
	State       State
	Input       string
	Results     []models.Facility
	Highlighted int
	Error       string
}

const (
	errorRowText   = "Error fetching results"
	timeoutRowText = "Search timed out"
)

// Options configures a Controller. Zero values get defaults.
type Options struct {
	Debounce  time.Duration
	Timeout   time.Duration
	MinLength int
	// OnChange is called with deliveries serialized. It must not call back
	// into the Controller synchronously.
	OnChange  func(Snapshot)
	OnSelect  func(models.Facility)
	Logger    zerolog.Logger

	// AfterFunc and Go replace time.AfterFunc and the go statement in tests.
	AfterFunc func(d time.Duration, f func()) Timer
	Go        func(f func())
}

func (o Options) withDefaults() Options {
	if o.Debounce <= 0 {
		o.Debounce = 300 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MinLength <= 0 {
		o.MinLength = 1
	}
	if o.AfterFunc == nil {
		o.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if o.Go == nil {
		o.Go = func(f func()) { go f() }
	}
	return o
}

// Controller is safe for concurrent use.
type Controller struct {
	fetcher Fetcher
	opts    Options

	mu          sync.Mutex
	state       State
	input       string
	category    string
	town        string
	timer       Timer
	seq         uint64
	cancel      context.CancelFunc
	results     []models.Facility
	highlighted int
	errText     string
	closed      bool
	version     uint64

	notifyMu  sync.Mutex
	delivered uint64

	// committed runs between publishing a fetch result and delivering it.
	committed func()
}

// New returns an idle controller.
func New(fetcher Fetcher, opts Options) *Controller {
	return &Controller{fetcher: fetcher, opts: opts.withDefaults(), highlighted: -1}
}

// Input handles a change of the search box text.
func (c *Controller) Input(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.input = text
	snap := c.restartLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// SetFilters changes the category and town filters and re-runs the search
// for the current input.
func (c *Controller) SetFilters(category, town string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.category, c.town = category, town
	snap := c.restartLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// restartLocked invalidates pending work and either clears the dropdown or
// arms a new debounce timer.
func (c *Controller) restartLocked() Snapshot {
	c.invalidateLocked()

	if utf8.RuneCountInString(strings.TrimSpace(c.input)) < c.opts.MinLength {
		c.clearLocked()
		return c.changedLocked()
	}

	c.state = Debouncing
	seq := c.seq
	c.timer = c.opts.AfterFunc(c.opts.Debounce, func() { c.fire(seq) })
	return c.changedLocked()
}

// invalidateLocked stops the timer, cancels the in-flight fetch and bumps the
// sequence so any late response is dropped.
func (c *Controller) invalidateLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.seq++
}

func (c *Controller) clearLocked() {
	c.state = Idle
	c.results = nil
	c.highlighted = -1
	c.errText = ""
}

func (c *Controller) fire(seq uint64) {
	c.mu.Lock()
	if c.closed || seq != c.seq || c.state != Debouncing {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.state = Fetching
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	c.cancel = cancel
	q := Query{Keyword: strings.TrimSpace(c.input), Category: c.category, Town: c.town}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.notify(snap)
	c.opts.Go(func() { c.fetch(ctx, cancel, seq, q) })
}

func (c *Controller) fetch(ctx context.Context, cancel context.CancelFunc, seq uint64, q Query) {
	results, err := c.fetcher.Fetch(ctx, q)
	timedOut := err != nil && (client.IsTimeout(err) || ctx.Err() == context.DeadlineExceeded)
	cancel()

	c.mu.Lock()
	if c.closed || seq != c.seq || c.state != Fetching {
		c.mu.Unlock()
		c.opts.Logger.Debug().Uint64("seq", seq).Str("keyword", q.Keyword).Msg("dropping stale search response")
		return
	}
	c.cancel = nil
	c.highlighted = -1
	if err != nil {
		c.state = Failed
		c.results = nil
		c.errText = errorRowText
		if timedOut {
			c.errText = timeoutRowText
		}
		c.opts.Logger.Warn().Err(err).Str("keyword", q.Keyword).Msg("search fetch failed")
	} else {
		c.state = Rendered
		c.results = results
		c.errText = ""
	}
	snap := c.changedLocked()
	c.mu.Unlock()
	if c.committed != nil {
		c.committed()
	}
	c.notify(snap)
}

// Key moves the highlight or selects the highlighted result. Keys are ignored
// unless results are shown.
func (c *Controller) Key(k Key) {
	c.mu.Lock()
	n := len(c.results)
	if c.closed || c.state != Rendered || n == 0 {
		c.mu.Unlock()
		return
	}

	var selected *models.Facility
	switch k {
	case KeyArrowDown:
		c.highlighted = (c.highlighted + 1) % n
	case KeyArrowUp:
		if c.highlighted < 0 {
			c.highlighted = n - 1
		} else {
			c.highlighted = (c.highlighted - 1 + n) % n
		}
	case KeyEnter:
		if c.highlighted < 0 {
			c.mu.Unlock()
			return
		}
		f := c.results[c.highlighted]
		selected = &f
		c.invalidateLocked()
		c.clearLocked()
	}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.notify(snap)
	if selected != nil && c.opts.OnSelect != nil {
		c.opts.OnSelect(*selected)
	}
}

// ClickOutside closes the dropdown.
func (c *Controller) ClickOutside() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.invalidateLocked()
	c.clearLocked()
	snap := c.changedLocked()
	c.mu.Unlock()
	c.notify(snap)
}

// Close stops pending work. Later calls are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
	c.closed = true
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// changedLocked records a state change and returns the snapshot to deliver.
func (c *Controller) changedLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	results := make([]models.Facility, len(c.results))
	copy(results, c.results)
	return Snapshot{
		Version:     c.version,
		State:       c.state,
		Input:       c.input,
		Results:     results,
		Highlighted: c.highlighted,
		Error:       c.errText,
	}
}

// notify delivers s unless a newer snapshot already went out. Snapshots are
// built under mu but delivered after it is released, so a slow goroutine can
// arrive late.
func (c *Controller) notify(s Snapshot) {
	if c.opts.OnChange == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if s.Version <= c.delivered {
		return
	}
	c.delivered = s.Version
	c.opts.OnChange(s)
}
