package storage

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"github.com/lintang-b-s/Districtx/pkg/util"
	"go.uber.org/zap"
)

/*
AssignmentCache. node to district assignment stored in badger under one namespace:

	<namespace>/a/<node id, 4 bytes big endian>  ->  <district, 8 bytes big endian two's complement>
	<namespace>/done                              ->  number of nodes, written last

a namespace without the done marker is treated as empty, so an interrupted Save is never loaded.
*/
type AssignmentCache struct {
	db        *badger.DB
	namespace string
	logger    *zap.Logger
}

func NewAssignmentCache(db *badger.DB, namespace string, logger *zap.Logger) *AssignmentCache {
	return &AssignmentCache{db: db, namespace: namespace, logger: logger}
}

func (c *AssignmentCache) prefix() []byte {
	return []byte(c.namespace + "/a/")
}

func (c *AssignmentCache) doneKey() []byte {
	return []byte(c.namespace + "/done")
}

func (c *AssignmentCache) nodeKey(u da.Index) []byte {
	p := c.prefix()
	key := make([]byte, len(p)+4)
	copy(key, p)
	binary.BigEndian.PutUint32(key[len(p):], uint32(u))
	return key
}

func encodeDistrict(d partition.DistrictID) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(int64(d)))
	return buf
}

func decodeDistrict(buf []byte) (partition.DistrictID, error) {
	if len(buf) != 8 {
		return 0, util.WrapErrorf(nil, util.ErrInternal, "corrupt district value of %d bytes", len(buf))
	}
	return partition.DistrictID(int64(binary.BigEndian.Uint64(buf))), nil
}

func (c *AssignmentCache) Load(ctx context.Context) (map[da.Index]partition.DistrictID, bool, error) {
	var (
		assignment map[da.Index]partition.DistrictID
		found      bool
	)
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.doneKey())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var count uint64
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return util.WrapErrorf(nil, util.ErrInternal, "corrupt done marker")
			}
			count = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return err
		}

		assignment = make(map[da.Index]partition.DistrictID, count)
		prefix := c.prefix()
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if util.StopConcurrentOperation(ctx) {
				return ctx.Err()
			}
			key := it.Item().Key()
			u := da.Index(binary.BigEndian.Uint32(key[len(prefix):]))
			if err := it.Item().Value(func(val []byte) error {
				d, err := decodeDistrict(val)
				assignment[u] = d
				return err
			}); err != nil {
				return err
			}
		}
		if uint64(len(assignment)) != count {
			return util.WrapErrorf(nil, util.ErrInternal, "cache %s holds %d of %d nodes", c.namespace, len(assignment), count)
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, util.WrapErrorf(err, util.ErrIO, "load assignment cache %s", c.namespace)
	}
	if found {
		c.logger.Debug("loaded assignment cache", zap.String("namespace", c.namespace), zap.Int("nodes", len(assignment)))
	}
	return assignment, found, nil
}

// Save replaces the stored assignment.
func (c *AssignmentCache) Save(ctx context.Context, assignment map[da.Index]partition.DistrictID) error {
	if err := c.Clear(); err != nil {
		return err
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	for u, d := range assignment {
		if util.StopConcurrentOperation(ctx) {
			return ctx.Err()
		}
		if err := wb.Set(c.nodeKey(u), encodeDistrict(d)); err != nil {
			return util.WrapErrorf(err, util.ErrIO, "write assignment cache %s", c.namespace)
		}
	}
	count := make([]byte, 8)
	binary.BigEndian.PutUint64(count, uint64(len(assignment)))
	if err := wb.Set(c.doneKey(), count); err != nil {
		return util.WrapErrorf(err, util.ErrIO, "write assignment cache %s", c.namespace)
	}
	if err := wb.Flush(); err != nil {
		return util.WrapErrorf(err, util.ErrIO, "flush assignment cache %s", c.namespace)
	}
	c.logger.Info("saved assignment cache", zap.String("namespace", c.namespace), zap.Int("nodes", len(assignment)))
	return nil
}

// Clear removes the stored assignment of this namespace.
func (c *AssignmentCache) Clear() error {
	var keys [][]byte
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := c.prefix()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return util.WrapErrorf(err, util.ErrIO, "scan assignment cache %s", c.namespace)
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()
	// the marker goes first so a partially cleared namespace is never loaded
	if err := wb.Delete(c.doneKey()); err != nil {
		return util.WrapErrorf(err, util.ErrIO, "clear assignment cache %s", c.namespace)
	}
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return util.WrapErrorf(err, util.ErrIO, "clear assignment cache %s", c.namespace)
		}
	}
	if err := wb.Flush(); err != nil {
		return util.WrapErrorf(err, util.ErrIO, "clear assignment cache %s", c.namespace)
	}
	return nil
}
