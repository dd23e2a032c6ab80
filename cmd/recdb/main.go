// Command recdb runs an interactive shell over an in-memory record store.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/spy16/recdb"
	"github.com/spy16/recdb/internal/logging"
)

// CLI defines the command-line flags of recdb.
var CLI struct {
	LogLevel    string   `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)."`
	LogFormat   string   `name:"log-format" default:"text" enum:"text,json" help:"Log format (text, json)."`
	OffHeap     bool     `name:"off-heap" help:"Keep page payloads in an anonymous memory mapping."`
	InitialSize int      `name:"initial-size" default:"0" help:"Initial size of the off-heap region in bytes."`
	Declare     []string `name:"declare" sep:"none" placeholder:"TABLE=SCHEMA" help:"Declare a table schema, e.g. users=id:int,name:string. Repeatable."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("recdb"),
		kong.Description("Interactive shell over an in-memory record store."),
		kong.UsageOnError(),
	)

	level, err := logging.ParseLevel(CLI.LogLevel)
	kctx.FatalIfErrorf(err)
	format, err := logging.ParseFormat(CLI.LogFormat)
	kctx.FatalIfErrorf(err)

	store, err := recdb.New(&recdb.Options{
		OffHeap:     CLI.OffHeap,
		InitialSize: CLI.InitialSize,
		Logger:      logging.New(os.Stderr, level, format),
	})
	kctx.FatalIfErrorf(err)
	defer store.Close()

	for _, decl := range CLI.Declare {
		table, schema, found := strings.Cut(decl, "=")
		if !found {
			kctx.Fatalf("invalid --declare '%s': want TABLE=SCHEMA", decl)
		}
		kctx.FatalIfErrorf(declare(store, table, schema))
	}

	repl(&session{store: store, out: os.Stdout}, os.Stdin)
}

func repl(sess *session, in io.Reader) {
	fmt.Fprintln(sess.out, "hello, type commands, 'help' for a list, 'quit' to stop")

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for {
		fmt.Fprint(sess.out, "> ")
		if !sc.Scan() {
			break
		}

		line := strings.TrimSpace(sc.Text())
		if line == "quit" || line == "exit" {
			break
		}

		if err := sess.exec(line); err != nil {
			fmt.Fprintln(sess.out, "error:", err)
		}
	}

	if err := sc.Err(); err != nil {
		fmt.Fprintln(sess.out, "error:", err)
	}
	fmt.Fprintln(sess.out, "bye!")
}

func declare(store *recdb.StorageManager, table, schema string) error {
	s, err := recdb.ParseSchema(schema)
	if err != nil {
		return err
	}
	return store.DeclareTable(table, s)
}
