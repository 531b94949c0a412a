package fontset

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tdewolff/incrfont"
	"github.com/tdewolff/incrfont/internal/fonttest"
	"github.com/tdewolff/test"
)

var errFake = errors.New("fake failure")

// testFetcher serves the fonttest font. If gate is set, FetchGlyphs sends its codepoints on started and waits for release.
type testFetcher struct {
	font []byte

	mu           sync.Mutex
	requests     [][]rune
	failBase     int
	failGlyphs   int
	started      chan []rune
	release      chan struct{}
	baseRequests int
}

func newTestFetcher(t *testing.T) *testFetcher {
	t.Helper()
	font, err := fonttest.OTF()
	test.Error(t, err)
	return &testFetcher{font: font}
}

func (f *testFetcher) FetchBase(ctx context.Context, id string) (incrfont.FileInfo, []byte, error) {
	f.mu.Lock()
	f.baseRequests++
	if 0 < f.failBase {
		f.failBase--
		f.mu.Unlock()
		return incrfont.FileInfo{}, nil, errFake
	}
	f.mu.Unlock()

	base, err := incrfont.MakeBase(f.font)
	if err != nil {
		return incrfont.FileInfo{}, nil, err
	}
	info, err := incrfont.ParseFileInfo(base)
	return info, base, err
}

func (f *testFetcher) FetchGlyphs(ctx context.Context, id string, codepoints []rune) ([]byte, error) {
	f.mu.Lock()
	f.requests = append(f.requests, append([]rune{}, codepoints...))
	fail := 0 < f.failGlyphs
	if fail {
		f.failGlyphs--
	}
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		started <- codepoints
		<-release
	}
	if fail {
		return nil, errFake
	}
	return incrfont.MakeGlyphBundle(f.font, codepoints)
}

func (f *testFetcher) Requests() [][]rune {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

type testSink struct {
	mu       sync.Mutex
	applied  map[string][]byte
	visible  map[string]bool
	applies  int
	failNext int
}

func newTestSink() *testSink {
	return &testSink{
		applied: map[string][]byte{},
		visible: map[string]bool{},
	}
}

func (sink *testSink) ApplySnapshot(ctx context.Context, id string, snapshot []byte, isTTF bool) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.applies++
	if 0 < sink.failNext {
		sink.failNext--
		return errFake
	}
	sink.applied[id] = snapshot
	return nil
}

func (sink *testSink) SetVisibility(id string, visible bool) {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.visible[id] = visible
}

func (sink *testSink) Visible(id string) bool {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return sink.visible[id]
}

func (sink *testSink) Applied(id string) []byte {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return sink.applied[id]
}

type opEvent struct {
	Seq           uint64
	Kind          OpKind
	Start, Finish time.Time
	Err           error
}

type testObserver struct {
	mu       sync.Mutex
	events   map[uint64]*opEvent
	order    []uint64
	finished chan opEvent
}

func newTestObserver() *testObserver {
	return &testObserver{
		events:   map[uint64]*opEvent{},
		finished: make(chan opEvent, 64),
	}
}

func (o *testObserver) OperationStarted(seq uint64, kind OpKind) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events[seq] = &opEvent{Seq: seq, Kind: kind, Start: time.Now()}
	o.order = append(o.order, seq)
}

func (o *testObserver) OperationFinished(seq uint64, kind OpKind, err error) {
	o.mu.Lock()
	event := o.events[seq]
	event.Finish = time.Now()
	event.Err = err
	e := *event
	o.mu.Unlock()
	o.finished <- e
}

// next waits for the next finished operation.
func (o *testObserver) next(t *testing.T) opEvent {
	t.Helper()
	select {
	case e := <-o.finished:
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for operation")
	}
	return opEvent{}
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	return log
}

func newTestSet(t *testing.T, fetcher Fetcher, sink Sink, opts ...Option) *Set {
	t.Helper()
	opts = append([]Option{
		WithLogger(testLogger()),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)
	s := New("Test", []string{"normal", "bold"}, fetcher, sink, opts...)
	t.Cleanup(s.Close)
	return s
}

func wait(t *testing.T, op *Operation) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := op.Wait(ctx)
	test.That(t, !errors.Is(err, context.DeadlineExceeded), "timeout waiting for operation")
	return err
}

func charString(t *testing.T, snapshot []byte, glyphID int) []byte {
	t.Helper()
	sfnt, err := incrfont.ParseSFNT(snapshot)
	test.Error(t, err)
	cff, err := sfnt.CFF()
	test.Error(t, err)
	b, err := cff.CharString(glyphID)
	test.Error(t, err)
	return b
}
