// Package recdb implements a record store on top of the pager. Records are
// field-name to string-value maps grouped by table; each record is encoded
// into its own page.
package recdb

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spy16/recdb/codec"
	"github.com/spy16/recdb/pager"
)

// New creates an empty StorageManager. If 'opts' is nil, defaultOptions are
// used.
func New(opts *Options) (*StorageManager, error) {
	if opts == nil {
		opts = &defaultOptions
	}

	id := uuid.New()
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log = log.With("store_id", id.String())

	p, err := pager.New(&pager.Options{
		OffHeap:     opts.OffHeap,
		InitialSize: opts.InitialSize,
		Logger:      log.With("component", "pager"),
	})
	if err != nil {
		return nil, err
	}

	return &StorageManager{
		id:        id,
		pages:     p,
		directory: map[string]pageSet{},
		owners:    map[pager.PageID]string{},
		schemas:   map[string]Schema{},
		log:       log,
	}, nil
}

// StorageManager groups pages by table and stores records in them. All
// public operations hold the store lock for their full duration, so a
// StorageManager is safe for concurrent use.
type StorageManager struct {
	mu  sync.RWMutex
	id  uuid.UUID
	log *slog.Logger

	pages     *pager.Pager
	directory map[string]pageSet      // table -> pages holding its records
	owners    map[pager.PageID]string // page -> table it belongs to
	schemas   map[string]Schema       // table -> declared fields
}

// InsertData encodes fields into a new page and adds the page to the table.
// If the table has a declared schema, fields are validated against it first.
func (sm *StorageManager) InsertData(table string, fields codec.Record) (pager.PageID, error) {
	if table == "" {
		return 0, ErrEmptyTable
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if err := sm.validate(table, fields); err != nil {
		return 0, err
	}

	d, err := codec.Encode(fields)
	if err != nil {
		return 0, fmt.Errorf("insert into '%s': %w", table, err)
	}

	id, err := sm.pages.StoreNew(d)
	if err != nil {
		return 0, fmt.Errorf("insert into '%s': %w", table, err)
	}

	if owner, taken := sm.owners[id]; taken {
		// only possible if the pager re-used an id
		return 0, fmt.Errorf("insert into '%s': page %d already owned by '%s'", table, id, owner)
	}

	set := sm.directory[table]
	set.insert(id)
	sm.directory[table] = set
	sm.owners[id] = table

	sm.log.Debug("record inserted", "table", table, "page_id", id, "size", len(d))
	return id, nil
}

// UpdateData overwrites the record stored in page 'id'. The page is not
// checked against any table; when it belongs to a table with a declared
// schema, fields are validated against that schema. Returns ErrPageNotFound
// if the page was never allocated.
func (sm *StorageManager) UpdateData(id pager.PageID, fields codec.Record) (pager.PageID, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.update(id, fields)
}

// UpdateTableData is like UpdateData but fails with ErrWrongTable unless the
// page is part of 'table'.
func (sm *StorageManager) UpdateTableData(table string, id pager.PageID, fields codec.Record) (pager.PageID, error) {
	if table == "" {
		return 0, ErrEmptyTable
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if !sm.directory[table].contains(id) {
		if owner, found := sm.owners[id]; found {
			return 0, fmt.Errorf("update page %d: %w ('%s', not '%s')", id, ErrWrongTable, owner, table)
		}
		if id >= pager.PageID(sm.pages.Count()) {
			return 0, fmt.Errorf("update page %d: %w", id, ErrPageNotFound)
		}
		return 0, fmt.Errorf("update page %d: %w (not in '%s')", id, ErrWrongTable, table)
	}

	return sm.update(id, fields)
}

// Read returns the page with given id. Callers decode the payload with
// codec.Decode into a codec.Record, or use ReadRecord.
func (sm *StorageManager) Read(id pager.PageID) (pager.Page, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.pages.Read(id)
}

// ReadRecord reads and decodes the record stored in page 'id'. The bool is
// false when the page does not exist.
func (sm *StorageManager) ReadRecord(id pager.PageID) (codec.Record, bool, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.readRecord(id)
}

// DeclareTable registers the schema of a table. Records already stored in
// the table must conform to it. Returns ErrTableExists if a schema was
// declared before.
func (sm *StorageManager) DeclareTable(table string, schema Schema) error {
	if table == "" {
		return ErrEmptyTable
	} else if err := schema.check(); err != nil {
		return err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.schemas[table]; exists {
		return fmt.Errorf("declare '%s': %w", table, ErrTableExists)
	}

	for _, id := range sm.directory[table] {
		rec, _, err := sm.readRecord(id)
		if err != nil {
			return fmt.Errorf("declare '%s': %w", table, err)
		}
		if err := schema.Validate(rec); err != nil {
			return fmt.Errorf("declare '%s': page %d: %w", table, id, withTable(err, table))
		}
	}

	sm.schemas[table] = schema.clone()
	sm.log.Info("table declared", "table", table, "schema", schema.String())
	return nil
}

// Schema returns the schema declared for the table.
func (sm *StorageManager) Schema(table string) (Schema, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	s, found := sm.schemas[table]
	return s.clone(), found
}

// Tables returns the names of all tables that have records or a declared
// schema, in sorted order.
func (sm *StorageManager) Tables() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	names := make([]string, 0, len(sm.directory)+len(sm.schemas))
	for name := range sm.directory {
		names = append(names, name)
	}
	for name := range sm.schemas {
		if _, dup := sm.directory[name]; !dup {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Pages returns the ids of the pages holding records of the table in
// ascending order.
func (sm *StorageManager) Pages(table string) []pager.PageID {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.directory[table].ids()
}

// Owner returns the table the page belongs to.
func (sm *StorageManager) Owner(id pager.PageID) (string, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	table, found := sm.owners[id]
	return table, found
}

// Scan calls fn for every record of the table in page id order until fn
// returns false. The set of pages is fixed when Scan starts; the lock is not
// held while fn runs, so fn may call back into the store.
func (sm *StorageManager) Scan(table string, fn func(id pager.PageID, rec codec.Record) bool) error {
	for _, id := range sm.Pages(table) {
		rec, found, err := sm.ReadRecord(id)
		if err != nil {
			return fmt.Errorf("scan '%s': %w", table, err)
		} else if !found {
			return fmt.Errorf("scan '%s': page %d: %w", table, id, ErrPageNotFound)
		}

		if !fn(id, rec) {
			break
		}
	}
	return nil
}

// Check verifies page digests and the page directory invariants.
func (sm *StorageManager) Check() error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if err := sm.pages.Check(); err != nil {
		return err
	}

	count := pager.PageID(sm.pages.Count())
	total := 0
	for table, set := range sm.directory {
		for _, id := range set {
			if id >= count {
				return fmt.Errorf("table '%s' lists unallocated page %d", table, id)
			} else if owner := sm.owners[id]; owner != table {
				return fmt.Errorf("page %d listed in '%s' but owned by '%s'", id, table, owner)
			}
		}
		total += len(set)
	}
	if total != len(sm.owners) {
		return errors.New("page directory and owner map disagree")
	}
	return nil
}

// ID returns the unique id of this store instance.
func (sm *StorageManager) ID() uuid.UUID { return sm.id }

// Stats returns counts about tables and records plus the pager i/o stats.
func (sm *StorageManager) Stats() Stats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return Stats{
		ID:       sm.id.String(),
		Tables:   len(sm.directory),
		Declared: len(sm.schemas),
		Records:  len(sm.owners),
		Pager:    sm.pages.Stats(),
	}
}

// Close releases the pages. The store is unusable afterwards.
func (sm *StorageManager) Close() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	return sm.pages.Close()
}

func (sm *StorageManager) String() string {
	return fmt.Sprintf("StorageManager{id=%s, pager=%s}", sm.id, sm.pages)
}

func (sm *StorageManager) update(id pager.PageID, fields codec.Record) (pager.PageID, error) {
	if table, owned := sm.owners[id]; owned {
		if err := sm.validate(table, fields); err != nil {
			return 0, err
		}
	}

	d, err := codec.Encode(fields)
	if err != nil {
		return 0, fmt.Errorf("update page %d: %w", id, err)
	}

	if err := sm.pages.Update(id, d); err != nil {
		return 0, err
	}

	sm.log.Debug("record updated", "table", sm.owners[id], "page_id", id, "size", len(d))
	return id, nil
}

func (sm *StorageManager) readRecord(id pager.PageID) (codec.Record, bool, error) {
	pg, found := sm.pages.Read(id)
	if !found {
		return nil, false, nil
	}

	var rec codec.Record
	if err := codec.Decode(pg.Data, &rec); err != nil {
		return nil, true, fmt.Errorf("page %d: %w", id, err)
	}
	return rec, true, nil
}

func (sm *StorageManager) validate(table string, fields codec.Record) error {
	schema, declared := sm.schemas[table]
	if !declared {
		return nil
	}
	return withTable(schema.Validate(fields), table)
}

func withTable(err error, table string) error {
	var se *SchemaError
	if errors.As(err, &se) {
		se.Table = table
	}
	return err
}

// Stats represents the state of a StorageManager.
type Stats struct {
	ID       string      `json:"id"`
	Tables   int         `json:"tables"`
	Declared int         `json:"declared"`
	Records  int         `json:"records"`
	Pager    pager.Stats `json:"pager"`
}
