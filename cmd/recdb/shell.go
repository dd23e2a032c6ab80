package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/spy16/recdb"
	"github.com/spy16/recdb/codec"
	"github.com/spy16/recdb/pager"
)

const shellHelp = `commands:
  insert <table> <field=value>...      insert a record, prints the page id
  update [-t table] <id> <field=value>...
                                       overwrite the record in a page
  read <id>                            print the record in a page
  scan <table>                         print all records of a table
  declare <table> <field:type,...>     declare the schema of a table
  tables                               list tables
  stats                                print store statistics
  check                                verify pages and directory
  help                                 print this help
  quit | exit                          leave the shell
values containing spaces can be double-quoted: bar="the value"`

type session struct {
	store *recdb.StorageManager
	out   io.Writer
}

// shell is the grammar of one shell line.
type shell struct {
	Insert  insertCmd  `cmd:"" help:"Insert a record into a table."`
	Update  updateCmd  `cmd:"" help:"Overwrite the record stored in a page."`
	Read    readCmd    `cmd:"" help:"Print the record stored in a page."`
	Scan    scanCmd    `cmd:"" help:"Print all records of a table."`
	Declare declareCmd `cmd:"" help:"Declare the schema of a table."`
	Tables  tablesCmd  `cmd:"" help:"List tables."`
	Stats   statsCmd   `cmd:"" help:"Print store statistics."`
	Check   checkCmd   `cmd:"" help:"Verify pages and directory."`
	Help    helpCmd    `cmd:"" help:"Print shell help."`
}

// exec parses one line and runs the command it names.
func (s *session) exec(line string) error {
	args, err := splitArgs(line)
	if err != nil {
		return err
	} else if len(args) == 0 {
		return nil
	}

	var sh shell
	parser, err := kong.New(&sh,
		kong.Name("recdb"),
		kong.NoDefaultHelp(),
		kong.Writers(s.out, s.out),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return ctx.Run(s)
}

type insertCmd struct {
	Table  string   `arg:"" help:"Table name."`
	Fields []string `arg:"" optional:"" sep:"none" placeholder:"FIELD=VALUE" help:"Fields of the record."`
}

func (c *insertCmd) Run(s *session) error {
	rec, err := parseFields(c.Fields)
	if err != nil {
		return err
	}

	id, err := s.store.InsertData(c.Table, rec)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "inserted page %d\n", id)
	return nil
}

type updateCmd struct {
	Table  string   `short:"t" help:"Only update if the page belongs to this table."`
	ID     uint64   `arg:"" help:"Page id."`
	Fields []string `arg:"" optional:"" sep:"none" placeholder:"FIELD=VALUE" help:"Fields of the record."`
}

func (c *updateCmd) Run(s *session) error {
	rec, err := parseFields(c.Fields)
	if err != nil {
		return err
	}

	if c.Table != "" {
		_, err = s.store.UpdateTableData(c.Table, pager.PageID(c.ID), rec)
	} else {
		_, err = s.store.UpdateData(pager.PageID(c.ID), rec)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "updated page %d\n", c.ID)
	return nil
}

type readCmd struct {
	ID uint64 `arg:"" help:"Page id."`
}

func (c *readCmd) Run(s *session) error {
	rec, found, err := s.store.ReadRecord(pager.PageID(c.ID))
	if err != nil {
		return err
	} else if !found {
		fmt.Fprintf(s.out, "page %d not found\n", c.ID)
		return nil
	}

	table, _ := s.store.Owner(pager.PageID(c.ID))
	fmt.Fprintf(s.out, "%s[%d]: %s\n", table, c.ID, formatRecord(rec))
	return nil
}

type scanCmd struct {
	Table string `arg:"" help:"Table name."`
}

func (c *scanCmd) Run(s *session) error {
	var ids []pager.PageID
	var recs []codec.Record
	err := s.store.Scan(c.Table, func(id pager.PageID, rec codec.Record) bool {
		ids = append(ids, id)
		recs = append(recs, rec)
		return true
	})
	if err != nil {
		return err
	}

	fmt.Fprint(s.out, formatTable(ids, recs))
	return nil
}

type declareCmd struct {
	Table  string `arg:"" help:"Table name."`
	Schema string `arg:"" help:"Comma separated field:type list."`
}

func (c *declareCmd) Run(s *session) error {
	if err := declare(s.store, c.Table, c.Schema); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "declared %s\n", c.Table)
	return nil
}

type tablesCmd struct{}

func (c *tablesCmd) Run(s *session) error {
	for _, table := range s.store.Tables() {
		line := fmt.Sprintf("%s\t%d pages", table, len(s.store.Pages(table)))
		if schema, found := s.store.Schema(table); found {
			line += "\t" + schema.String()
		}
		fmt.Fprintln(s.out, line)
	}
	return nil
}

type statsCmd struct{}

func (c *statsCmd) Run(s *session) error {
	enc := json.NewEncoder(s.out)
	enc.SetIndent("", "  ")
	return enc.Encode(s.store.Stats())
}

type checkCmd struct{}

func (c *checkCmd) Run(s *session) error {
	if err := s.store.Check(); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "ok")
	return nil
}

type helpCmd struct{}

func (c *helpCmd) Run(s *session) error {
	fmt.Fprintln(s.out, shellHelp)
	return nil
}

func parseFields(args []string) (codec.Record, error) {
	rec := make(codec.Record, len(args))
	for _, arg := range args {
		name, value, found := strings.Cut(arg, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid field '%s': want field=value", arg)
		} else if _, dup := rec[name]; dup {
			return nil, fmt.Errorf("field '%s' given twice", name)
		}
		rec[name] = value
	}
	return rec, nil
}

func formatRecord(rec codec.Record) string {
	parts := make([]string, 0, len(rec))
	for _, name := range rec.Fields() {
		parts = append(parts, fmt.Sprintf("%s=%q", name, rec[name]))
	}
	return strings.Join(parts, " ")
}

// formatTable renders records as tab separated rows under a header made of
// every field seen.
func formatTable(ids []pager.PageID, recs []codec.Record) string {
	seen := map[string]bool{}
	for _, rec := range recs {
		for name := range rec {
			seen[name] = true
		}
	}
	header := make([]string, 0, len(seen))
	for name := range seen {
		header = append(header, name)
	}
	sort.Strings(header)

	var sb strings.Builder
	sb.WriteString("page\t" + strings.Join(header, "\t") + "\n")
	sb.WriteString("------------------\n")
	for i, rec := range recs {
		row := make([]string, len(header))
		for j, name := range header {
			row[j] = rec[name]
		}
		fmt.Fprintf(&sb, "%d\t%s\n", ids[i], strings.Join(row, "\t"))
	}
	fmt.Fprintf(&sb, "%d lines found\n", len(recs))
	return sb.String()
}
