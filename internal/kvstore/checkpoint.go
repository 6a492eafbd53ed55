package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/leengari/kvstore/internal/kvstore/codec"
	"github.com/leengari/kvstore/internal/orderedmap"
)

// checkpointEntry is one key/value pair in the checkpoint image. Key and
// Value hold the bytes the configured codecs produced; encoding/json
// base64-encodes []byte fields, so the image is itself valid JSON — "the
// same encoding as record bodies" required by the on-disk format.
type checkpointEntry struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// loadCheckpoint decodes the dataset image at datapath, or returns an empty
// dataset if the file does not exist or is empty.
func loadCheckpoint[K comparable, V any](datapath string, keyCodec codec.Codec[K], valCodec codec.Codec[V], order codec.Ordered[K]) (*orderedmap.Map[K, V], error) {
	dataset := orderedmap.New[K, V](order.Less)

	data, err := os.ReadFile(datapath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dataset, nil
		}
		return nil, fmt.Errorf("read checkpoint file %s: %w", datapath, err)
	}
	if len(data) == 0 {
		return dataset, nil
	}

	var entries []checkpointEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode checkpoint image %s: %w", datapath, err)
	}
	for _, e := range entries {
		k, err := keyCodec.Decode(e.Key)
		if err != nil {
			return nil, fmt.Errorf("decode checkpoint key in %s: %w", datapath, err)
		}
		v, err := valCodec.Decode(e.Value)
		if err != nil {
			return nil, fmt.Errorf("decode checkpoint value in %s: %w", datapath, err)
		}
		dataset.Set(k, v)
	}
	return dataset, nil
}

// writeCheckpoint overwrites datapath with the full serialized dataset
// image, forcing it and its metadata to stable storage before returning.
// Callers must clear the log only after this succeeds: a crash between the
// two steps would otherwise lose committed data that only the log, not yet
// the checkpoint image, held.
func writeCheckpoint[K comparable, V any](datapath string, dataset *orderedmap.Map[K, V], keyCodec codec.Codec[K], valCodec codec.Codec[V]) error {
	keys := dataset.Keys()
	entries := make([]checkpointEntry, 0, len(keys))
	for _, k := range keys {
		v, _ := dataset.Get(k)
		kb, err := keyCodec.Encode(k)
		if err != nil {
			return fmt.Errorf("encode checkpoint key: %w", err)
		}
		vb, err := valCodec.Encode(v)
		if err != nil {
			return fmt.Errorf("encode checkpoint value: %w", err)
		}
		entries = append(entries, checkpointEntry{Key: kb, Value: vb})
	}

	blob, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal checkpoint image: %w", err)
	}

	f, err := os.OpenFile(datapath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open checkpoint file %s: %w", datapath, err)
	}
	defer f.Close()

	if _, err := f.Write(blob); err != nil {
		return fmt.Errorf("write checkpoint image %s: %w", datapath, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync checkpoint image %s: %w", datapath, err)
	}
	return nil
}
