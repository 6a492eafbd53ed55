package recovery

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/kvstore/internal/wal"
)

type fakeApplier struct {
	data map[string]string
}

func newFakeApplier() *fakeApplier {
	return &fakeApplier{data: make(map[string]string)}
}

func (f *fakeApplier) Set(key, value []byte) {
	f.data[string(key)] = string(value)
}

func (f *fakeApplier) Delete(key []byte) {
	delete(f.data, string(key))
}

func TestReplayAppliesOnlyCommittedTransactions(t *testing.T) {
	records := []wal.Record{
		wal.CreateRecord{Key: []byte("a"), Value: []byte("1")},
		wal.CreateRecord{Key: []byte("b"), Value: []byte("2")},
		wal.CommitRecord{},
		wal.UpdateRecord{Key: []byte("a"), Value: []byte("99")},
		wal.AbortRecord{},
	}

	applier := newFakeApplier()
	Replay(records, applier)

	assert.DeepEqual(t, applier.data, map[string]string{"a": "1", "b": "2"})
}

func TestReplayDropsTrailingUnterminatedTransaction(t *testing.T) {
	records := []wal.Record{
		wal.CreateRecord{Key: []byte("a"), Value: []byte("1")},
		wal.CommitRecord{},
		wal.CreateRecord{Key: []byte("b"), Value: []byte("2")},
		// no trailing boundary: "b" must not be visible
	}

	applier := newFakeApplier()
	Replay(records, applier)

	assert.DeepEqual(t, applier.data, map[string]string{"a": "1"})
}

func TestReplayIgnoresReadRecords(t *testing.T) {
	records := []wal.Record{
		wal.CreateRecord{Key: []byte("a"), Value: []byte("1")},
		wal.ReadRecord{Key: []byte("a")},
		wal.CommitRecord{},
	}

	applier := newFakeApplier()
	Replay(records, applier)

	assert.DeepEqual(t, applier.data, map[string]string{"a": "1"})
}

func TestReplayIsIdempotent(t *testing.T) {
	records := []wal.Record{
		wal.CreateRecord{Key: []byte("a"), Value: []byte("1")},
		wal.UpdateRecord{Key: []byte("a"), Value: []byte("2")},
		wal.DeleteRecord{Key: []byte("b")},
		wal.CommitRecord{},
	}

	first := newFakeApplier()
	Replay(records, first)

	second := newFakeApplier()
	Replay(records, second)
	Replay(records, second)

	assert.DeepEqual(t, first.data, second.data)
}

func TestReplayDeleteThenCreateWithinSameTransaction(t *testing.T) {
	records := []wal.Record{
		wal.CreateRecord{Key: []byte("a"), Value: []byte("1")},
		wal.CommitRecord{},
		wal.DeleteRecord{Key: []byte("a")},
		wal.CreateRecord{Key: []byte("a"), Value: []byte("2")},
		wal.CommitRecord{},
	}

	applier := newFakeApplier()
	Replay(records, applier)

	assert.DeepEqual(t, applier.data, map[string]string{"a": "2"})
}
