package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	events []string
	errs   []error
}

func (r *recorder) OnStageStart(name string) {
	r.events = append(r.events, "start:"+name)
}

func (r *recorder) OnStageComplete(name string, err error, _ time.Duration) {
	r.events = append(r.events, "done:"+name)
	r.errs = append(r.errs, err)
}

func TestRunStage(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	tests := map[string]struct {
		fnErr error
	}{
		"success": {},
		"failure": {fnErr: boom},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			rec := &recorder{}
			ran := false
			err := RunStage(rec, "load", func() error {
				ran = true
				return tt.fnErr
			})
			assert.True(t, ran)
			assert.Equal(t, tt.fnErr, err)
			assert.Equal(t, []string{"start:load", "done:load"}, rec.events)
			assert.Equal(t, []error{tt.fnErr}, rec.errs)
		})
	}
}

func TestRunStage_NilObserver(t *testing.T) {
	t.Parallel()
	assert.NoError(t, RunStage(nil, "x", func() error { return nil }))
}

func TestMulti(t *testing.T) {
	t.Parallel()
	a, b := &recorder{}, &recorder{}
	m := Multi{a, nil, b}

	_ = RunStage(m, "publish", func() error { return nil })
	assert.Equal(t, []string{"start:publish", "done:publish"}, a.events)
	assert.Equal(t, a.events, b.events)
}
