package fontset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/incrfont"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is the delay of a requested update.
const DefaultDebounce = time.Second

// TextChange is text that was added to or changed in a document, set in the given font family and weight.
type TextChange struct {
	Text   string
	Family string // empty matches any family
	Weight string // CSS font-weight, empty is normal
}

// Option configures a Set.
type Option func(*Set)

// WithStore sets the store that persists snapshots. The default never persists.
func WithStore(store Store) Option {
	return func(s *Set) {
		s.store = store
	}
}

// WithLogger sets the logger, the default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Set) {
		s.log = log
	}
}

// WithObserver sets the observer of queued operations.
func WithObserver(observer Observer) Option {
	return func(s *Set) {
		s.observer = observer
	}
}

// WithRand sets the source of the padding codepoints.
func WithRand(rng *rand.Rand) Option {
	return func(s *Set) {
		s.rng = rng
	}
}

// WithDebounce sets the delay of a requested update.
func WithDebounce(debounce time.Duration) Option {
	return func(s *Set) {
		s.debounce = debounce
	}
}

// WithMerger sets the merger of glyph bundles, the default is incrfont.CFFMerger.
func WithMerger(merger Merger) Option {
	return func(s *Set) {
		s.merger = merger
	}
}

// WithConcurrency limits the number of fonts that are processed concurrently within one operation. Zero or negative is no limit.
func WithConcurrency(n int) Option {
	return func(s *Set) {
		s.concurrency = n
	}
}

// Set is a font family in one or more weights whose snapshots are updated incrementally with the glyphs of the text that is observed. All operations that touch the snapshots run in order on a single worker goroutine.
type Set struct {
	Family string

	fetcher     Fetcher
	sink        Sink
	store       Store
	merger      Merger
	observer    Observer
	log         logrus.FieldLogger
	debounce    time.Duration
	concurrency int

	mu            sync.Mutex
	fonts         []*FontView
	rng           *rand.Rand
	hadMutation   bool
	contentLoaded bool
	timer         *time.Timer
	closed        bool

	queue      *UpdateQueue
	cancel     context.CancelFunc
	workerDone chan struct{}
}

// New returns a font set for a family in the given weights and starts its worker. Close must be called to stop the worker.
func New(family string, weights []string, fetcher Fetcher, sink Sink, opts ...Option) *Set {
	s := &Set{
		Family:   family,
		fetcher:  fetcher,
		sink:     sink,
		store:    NopStore{},
		merger:   incrfont.CFFMerger{},
		observer: nopObserver{},
		log:      logrus.StandardLogger(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if len(weights) == 0 {
		weights = []string{DefaultWeight}
	}

	seen := map[string]bool{}
	for _, weight := range weights {
		weight = WeightNumber(weight)
		if !seen[weight] {
			seen[weight] = true
			s.fonts = append(s.fonts, newFontView(&s.mu, family, weight))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.queue = newUpdateQueue(s.observer)
	s.cancel = cancel
	s.workerDone = make(chan struct{})
	go func() {
		defer close(s.workerDone)
		s.queue.Run(ctx)
	}()
	return s
}

// Fonts returns the fonts of the set.
func (s *Set) Fonts() []*FontView {
	return s.fonts
}

// Font returns the font of the given weight, or nil.
func (s *Set) Font(weight string) *FontView {
	id := FontID(s.Family, WeightNumber(weight))
	for _, font := range s.fonts {
		if font.ID == id {
			return font
		}
	}
	return nil
}

// Close stops the worker after the running operation. Operations that have not started finish with ErrClosed.
func (s *Set) Close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.cancel()
	<-s.workerDone
}

func (s *Set) addText(change TextChange) bool {
	if change.Family != "" && change.Family != s.Family {
		return false
	}
	id := FontID(s.Family, WeightNumber(change.Weight))
	for _, font := range s.fonts {
		if font.ID == id {
			return font.addText(change.Text)
		}
	}
	return false
}

// hasNeeded returns true if any font has codepoints that are not yet satisfied. The caller holds s.mu.
func (s *Set) hasNeeded() bool {
	for _, font := range s.fonts {
		if 0 < len(font.needed) {
			return true
		}
	}
	return false
}

// AddText adds the codepoints of the text to the needed set of its font without triggering an update. It returns true if any codepoint was added.
func (s *Set) AddText(change TextChange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addText(change)
}

// TextChanged adds the codepoints of the text and triggers an update if any font needs codepoints, including ones kept after a failed fetch. The first triggering change after ContentLoaded updates immediately, other changes request a debounced update.
func (s *Set) TextChanged(change TextChange) {
	s.mu.Lock()
	if !s.addText(change) && !s.hasNeeded() {
		s.mu.Unlock()
		return
	}
	immediate := !s.hadMutation && s.contentLoaded
	s.hadMutation = true
	s.mu.Unlock()

	if immediate {
		s.Update()
	} else {
		s.RequestUpdate()
	}
}

// ContentLoaded signals that the initial content of the document has been parsed. It updates immediately if text changes were observed before.
func (s *Set) ContentLoaded() {
	s.mu.Lock()
	s.contentLoaded = true
	hadMutation := s.hadMutation
	s.mu.Unlock()

	if hadMutation {
		s.Update()
	}
}

// RequestUpdate enqueues an update after the debounce delay, unless an update is already queued and has not yet started by then. Repeated requests within the delay are coalesced.
func (s *Set) RequestUpdate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.timer != nil {
		return
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		if s.timer == timer {
			s.timer = nil
		}
		closed := s.closed
		s.mu.Unlock()
		if !closed && s.queue.Queued(OpUpdate) == nil {
			s.enqueueUpdate()
		}
	})
	s.timer = timer
}

// Update enqueues an update of all fonts and cancels a requested update. The update fetches the glyphs of the codepoints that are needed when it starts.
func (s *Set) Update() *Operation {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	return s.enqueueUpdate()
}

func (s *Set) enqueueUpdate() *Operation {
	return s.queue.Enqueue(OpUpdate, func(ctx context.Context) error {
		return s.forEachFont(ctx, OpUpdate, s.updateFont)
	})
}

// Load enqueues the initial load of all fonts. A font that is in the store is applied and made visible immediately, otherwise its base snapshot is fetched and applied once glyphs have been merged into it.
func (s *Set) Load() *Operation {
	return s.queue.Enqueue(OpLoad, func(ctx context.Context) error {
		return s.forEachFont(ctx, OpLoad, s.loadFont)
	})
}

// forEachFont runs f concurrently for every font. A failing font does not stop the others, all errors are returned.
func (s *Set) forEachFont(ctx context.Context, kind OpKind, f func(context.Context, *FontView) error) error {
	var g errgroup.Group
	if 0 < s.concurrency {
		g.SetLimit(s.concurrency)
	}
	errs := make([]error, len(s.fonts))
	for i, font := range s.fonts {
		g.Go(func() error {
			if err := f(ctx, font); err != nil {
				s.log.WithFields(logrus.Fields{"font": font.ID, "op": kind.String()}).WithError(err).Warn("font operation failed")
				errs[i] = err
			}
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

func (s *Set) loadFont(ctx context.Context, font *FontView) error {
	log := s.log.WithFields(logrus.Fields{"font": font.ID, "op": OpLoad.String()})

	info, snapshot, ok, err := s.store.Get(ctx, font.ID)
	if err != nil {
		// the store may still hold a snapshot with more glyphs than the base
		log.WithError(err).Warn("store unavailable, fetching base")
		s.mu.Lock()
		font.storeFailed = true
		s.mu.Unlock()
		return s.fetchBase(ctx, font)
	} else if !ok {
		return s.fetchBase(ctx, font)
	}
	log.Debugf("persisted snapshot with %d chars", len(info.Chars))

	s.mu.Lock()
	font.snapshot = snapshot
	font.info = info
	font.alreadyPersisted = true
	for _, r := range info.Chars {
		font.satisfied[r] = true
		delete(font.needed, r)
	}
	s.mu.Unlock()
	return s.apply(ctx, font, snapshot, info.IsTTF)
}

func (s *Set) fetchBase(ctx context.Context, font *FontView) error {
	info, snapshot, err := s.fetcher.FetchBase(ctx, font.ID)
	if err != nil {
		return &IOError{"fetch base", font.ID, err}
	}
	info.Chars = nil

	s.mu.Lock()
	font.snapshot = snapshot
	font.info = info
	font.needsSnapshotApply = true
	persist := !font.storeFailed
	s.mu.Unlock()

	if persist {
		s.put(ctx, font.ID, info, snapshot)
	}
	return nil
}

func (s *Set) updateFont(ctx context.Context, font *FontView) error {
	s.mu.Lock()
	snapshot := font.snapshot
	s.mu.Unlock()
	if snapshot == nil {
		if err := s.fetchBase(ctx, font); err != nil {
			return err
		}
	}

	s.mu.Lock()
	snapshot, info := font.snapshot, font.info
	delta := sortedRunes(font.needed)
	if len(delta) == 0 {
		retry := font.needsSnapshotApply && 0 < len(font.satisfied)
		s.mu.Unlock()
		if retry {
			return s.apply(ctx, font, snapshot, info.IsTTF)
		}
		return nil
	}
	for _, r := range delta {
		font.pending[r] = true
	}
	font.phase = Requesting
	request := pad(delta, s.rng)
	s.mu.Unlock()

	fail := func(err error) error {
		s.mu.Lock()
		clear(font.pending)
		font.phase = Idle
		s.mu.Unlock()
		return err
	}

	s.log.WithFields(logrus.Fields{"font": font.ID, "op": OpUpdate.String()}).Debugf("fetching %d chars padded to %d", len(delta), len(request))
	b, err := s.fetcher.FetchGlyphs(ctx, font.ID, request)
	if err != nil {
		return fail(&IOError{"fetch glyphs", font.ID, err})
	}
	bundle, err := incrfont.ParseGlyphBundle(b)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", font.ID, err))
	}

	s.mu.Lock()
	font.phase = Applying
	s.mu.Unlock()

	merged, err := s.merger.MergeGlyphs(snapshot, bundle)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", font.ID, err))
	}

	s.mu.Lock()
	font.snapshot = merged
	for _, r := range delta {
		font.satisfied[r] = true
		delete(font.needed, r)
	}
	clear(font.pending)
	font.info.Chars = sortedRunes(font.satisfied)
	info = font.info
	s.mu.Unlock()

	s.put(ctx, font.ID, info, merged)
	err = s.apply(ctx, font, merged, info.IsTTF)

	s.mu.Lock()
	font.phase = Idle
	s.mu.Unlock()
	return err
}

// apply hands the snapshot to the sink and makes the font visible. On failure the snapshot is kept and applied again by a later update.
func (s *Set) apply(ctx context.Context, font *FontView, snapshot []byte, isTTF bool) error {
	if err := s.sink.ApplySnapshot(ctx, font.ID, snapshot, isTTF); err != nil {
		s.mu.Lock()
		font.needsSnapshotApply = true
		s.mu.Unlock()
		return &RenderApplyError{font.ID, err}
	}

	s.mu.Lock()
	font.needsSnapshotApply = false
	s.mu.Unlock()
	s.sink.SetVisibility(font.ID, true)
	return nil
}

func (s *Set) put(ctx context.Context, id string, info incrfont.FileInfo, snapshot []byte) {
	if err := s.store.Put(ctx, id, info, snapshot); err != nil {
		s.log.WithFields(logrus.Fields{"font": id}).WithError(&IOError{"put", id, err}).Warn("could not persist snapshot")
	}
}
