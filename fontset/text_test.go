package fontset

import (
	"testing"

	"github.com/tdewolff/test"
)

type recordingTextObserver struct {
	changes []TextChange
	loaded  int
}

func (o *recordingTextObserver) TextChanged(change TextChange) {
	o.changes = append(o.changes, change)
}

func (o *recordingTextObserver) ContentLoaded() {
	o.loaded++
}

func TestTextBuffer(t *testing.T) {
	buf := &TextBuffer{}
	buf.Append(TextChange{Text: "Hello"})
	i := buf.Append(TextChange{Text: "World", Weight: "bold"})
	test.T(t, i, 1)

	o := &recordingTextObserver{}
	buf.Subscribe(o)

	walked := []string{}
	buf.Walk(func(change TextChange) {
		walked = append(walked, change.Text)
	})
	test.T(t, walked, []string{"Hello", "World"})
	test.T(t, len(o.changes), 0, "walk does not notify")

	buf.Set(1, "Welt")
	buf.Append(TextChange{Text: "!"})
	test.T(t, o.changes, []TextChange{{Text: "Welt", Weight: "bold"}, {Text: "!"}})
	test.T(t, buf.Len(), 3)

	buf.Loaded()
	buf.Loaded()
	test.T(t, o.loaded, 1)
}

func TestTextBufferSet(t *testing.T) {
	s := newTestSet(t, newTestFetcher(t), newTestSink())
	buf := &TextBuffer{}
	buf.Append(TextChange{Text: "AB"})
	buf.Walk(func(change TextChange) {
		s.AddText(change)
	})
	buf.Subscribe(s)
	test.T(t, s.Font("400").Needed(), []rune("AB"))

	buf.Append(TextChange{Text: "C", Weight: "bold"})
	test.T(t, s.Font("700").Needed(), []rune("C"))
}
