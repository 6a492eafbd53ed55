package kvstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/leengari/kvstore/internal/kvstore"
	"github.com/leengari/kvstore/internal/kvstore/codec"
	"github.com/leengari/kvstore/internal/kvstore/errs"
)

func openTestDB(t *testing.T) *kvstore.DB[string, string] {
	t.Helper()
	dir := t.TempDir()
	db, err := kvstore.Open[string, string](
		filepath.Join(dir, "kv.log"),
		filepath.Join(dir, "kv.data"),
		codec.NaturalOrder[string](),
	)
	assert.NilError(t, err)
	return db
}

func TestBasicCommitPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "kv.log")
	dataPath := filepath.Join(dir, "kv.data")

	db, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	assert.NilError(t, tx.Commit())
	assert.NilError(t, db.Close())

	db2, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)
	tx2 := db2.Begin()
	v, err := tx2.Read("a")
	assert.NilError(t, err)
	assert.Equal(t, v, "1")
	assert.NilError(t, tx2.Abort())
	assert.NilError(t, db2.Close())
}

func TestImplicitAbortOnClose(t *testing.T) {
	db := openTestDB(t)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	assert.NilError(t, tx.Close())

	tx2 := db.Begin()
	_, err := tx2.Read("a")
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)
	assert.NilError(t, tx2.Abort())
}

func TestCrashWithoutCloseReplaysCommittedTransaction(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "kv.log")
	dataPath := filepath.Join(dir, "kv.data")

	db, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	assert.NilError(t, tx.Commit())
	// No Close: simulates a crash after a synced commit but before an
	// orderly shutdown checkpoint.

	db2, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)
	tx2 := db2.Begin()
	v, err := tx2.Read("a")
	assert.NilError(t, err)
	assert.Equal(t, v, "1")
	assert.NilError(t, tx2.Abort())
	assert.NilError(t, db2.Close())
}

func TestManySmallCommitsFoldIntoCheckpoint(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "kv.log")
	dataPath := filepath.Join(dir, "kv.data")

	db, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)

	for i := 0; i < 50; i++ {
		tx := db.Begin()
		assert.NilError(t, tx.Create(string(rune('a'+i%26))+string(rune(i)), "v"))
		assert.NilError(t, tx.Commit())
	}
	assert.NilError(t, db.Close())

	db2, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)

	info, err := os.Stat(logPath)
	assert.NilError(t, err)
	assert.Equal(t, info.Size(), int64(0))

	tx := db2.Begin()
	for i := 0; i < 50; i++ {
		v, err := tx.Read(string(rune('a'+i%26)) + string(rune(i)))
		assert.NilError(t, err)
		assert.Equal(t, v, "v")
	}
	assert.NilError(t, tx.Abort())
	assert.NilError(t, db2.Close())
}

func TestAbortDiscardsStagedMutations(t *testing.T) {
	db := openTestDB(t)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	assert.NilError(t, tx.Abort())

	tx2 := db.Begin()
	_, err := tx2.Read("a")
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)
	assert.NilError(t, tx2.Abort())
}

func TestCreateDuplicateKeyFails(t *testing.T) {
	db := openTestDB(t)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	err := tx.Create("a", "2")
	assert.ErrorIs(t, err, errs.ErrKeyDuplication)
	assert.NilError(t, tx.Abort())
}

func TestUpdateAndDeleteRequireExistingKey(t *testing.T) {
	db := openTestDB(t)

	tx := db.Begin()
	assert.ErrorIs(t, tx.Update("missing", "x"), errs.ErrKeyNotFound)
	assert.ErrorIs(t, tx.Delete("missing"), errs.ErrKeyNotFound)
	assert.NilError(t, tx.Abort())
}

func TestWriteVisibleWithinOwnTransactionBeforeCommit(t *testing.T) {
	db := openTestDB(t)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	v, err := tx.Read("a")
	assert.NilError(t, err)
	assert.Equal(t, v, "1")

	assert.NilError(t, tx.Update("a", "2"))
	v2, err := tx.Read("a")
	assert.NilError(t, err)
	assert.Equal(t, v2, "2")

	assert.NilError(t, tx.Delete("a"))
	_, err = tx.Read("a")
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)

	assert.NilError(t, tx.Abort())
}

func TestOperationsAfterResolveReturnErrTxnClosed(t *testing.T) {
	db := openTestDB(t)

	tx := db.Begin()
	assert.NilError(t, tx.Commit())

	assert.ErrorIs(t, tx.Create("a", "1"), errs.ErrTxnClosed)
	_, err := tx.Read("a")
	assert.ErrorIs(t, err, errs.ErrTxnClosed)
	assert.ErrorIs(t, tx.Update("a", "1"), errs.ErrTxnClosed)
	assert.ErrorIs(t, tx.Delete("a"), errs.ErrTxnClosed)
	assert.ErrorIs(t, tx.Commit(), errs.ErrTxnClosed)
	assert.ErrorIs(t, tx.Abort(), errs.ErrTxnClosed)
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTransaction(func(tx *kvstore.Transaction[string, string]) error {
		return tx.Create("a", "1")
	})
	assert.NilError(t, err)

	tx := db.Begin()
	v, err := tx.Read("a")
	assert.NilError(t, err)
	assert.Equal(t, v, "1")
	assert.NilError(t, tx.Abort())
}

func TestWithTransactionAbortsOnError(t *testing.T) {
	db := openTestDB(t)

	err := db.WithTransaction(func(tx *kvstore.Transaction[string, string]) error {
		if cerr := tx.Create("a", "1"); cerr != nil {
			return cerr
		}
		return errs.ErrKeyNotFound
	})
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)

	tx := db.Begin()
	_, rerr := tx.Read("a")
	assert.ErrorIs(t, rerr, errs.ErrKeyNotFound)
	assert.NilError(t, tx.Abort())
}

func TestWithTransactionResolvesOnPanic(t *testing.T) {
	db := openTestDB(t)

	func() {
		defer func() {
			r := recover()
			assert.Equal(t, r, "boom")
		}()
		_ = db.WithTransaction(func(tx *kvstore.Transaction[string, string]) error {
			_ = tx.Create("a", "1")
			panic("boom")
		})
	}()

	// The transaction slot must have been released by Close inside the
	// recovered panic path, otherwise this Begin would deadlock.
	tx := db.Begin()
	_, err := tx.Read("a")
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)
	assert.NilError(t, tx.Abort())
}

func TestBeginBlocksUntilPriorTransactionResolves(t *testing.T) {
	db := openTestDB(t)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))

	done := make(chan struct{})
	go func() {
		tx2 := db.Begin()
		v, err := tx2.Read("a")
		assert.NilError(t, err)
		assert.Equal(t, v, "1")
		assert.NilError(t, tx2.Abort())
		close(done)
	}()

	assert.NilError(t, tx.Commit())
	<-done
}

func TestCorruptLogTailReopensWithPriorCommittedData(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "kv.log")
	dataPath := filepath.Join(dir, "kv.data")

	db, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	assert.NilError(t, tx.Commit())
	assert.NilError(t, db.Close())

	// A second transaction whose Commit frame we will tear by truncating
	// trailing bytes, simulating a crash mid-append: on disk it is left
	// without a Commit boundary.
	db2, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)
	tx2 := db2.Begin()
	assert.NilError(t, tx2.Create("b", "2"))
	assert.NilError(t, tx2.Commit())

	info, err := os.Stat(logPath)
	assert.NilError(t, err)
	assert.NilError(t, os.Truncate(logPath, info.Size()-5))

	db3, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)
	tx3 := db3.Begin()
	v, err := tx3.Read("a")
	assert.NilError(t, err)
	assert.Equal(t, v, "1")
	assert.NilError(t, tx3.Abort())
	assert.NilError(t, db3.Close())
}

func TestOpenToleratesCorruptFrameAndKeepsValidPrefix(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "kv.log")
	dataPath := filepath.Join(dir, "kv.data")

	db, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)
	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	assert.NilError(t, tx.Commit())

	firstCommitSize, err := os.Stat(logPath)
	assert.NilError(t, err)

	tx2 := db.Begin()
	assert.NilError(t, tx2.Create("b", "2"))
	assert.NilError(t, tx2.Commit())
	// No Close: closing would checkpoint and clear the log, leaving
	// nothing on disk to corrupt.

	full, err := os.ReadFile(logPath)
	assert.NilError(t, err)
	// Flip the first body byte of the second transaction's first frame,
	// past the first transaction's already-durable frames.
	full[firstCommitSize.Size()+40] ^= 0xFF
	assert.NilError(t, os.WriteFile(logPath, full, 0o644))

	db2, err := kvstore.Open[string, string](logPath, dataPath, codec.NaturalOrder[string]())
	assert.NilError(t, err)
	tx3 := db2.Begin()
	v, err := tx3.Read("a")
	assert.NilError(t, err)
	assert.Equal(t, v, "1")
	_, err = tx3.Read("b")
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)
	assert.NilError(t, tx3.Abort())
	assert.NilError(t, db2.Close())
}

func TestClearRemovesAllState(t *testing.T) {
	db := openTestDB(t)

	tx := db.Begin()
	assert.NilError(t, tx.Create("a", "1"))
	assert.NilError(t, tx.Commit())

	assert.NilError(t, db.Clear())

	tx2 := db.Begin()
	_, err := tx2.Read("a")
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)
	assert.NilError(t, tx2.Abort())
}
