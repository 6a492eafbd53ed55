// Package kvrepl is the interactive front end for a kvstore.DB[string,
// string]: a line-oriented command loop in the style of this project's
// earlier table-oriented REPL, retargeted at single key/value operations.
package kvrepl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/leengari/kvstore/internal/kvstore"
)

// Start reads commands from r and writes output to w until EOF or an
// "exit" / "\q" line. Each line is one command:
//
//	begin
//	create <key> <value>
//	read <key>
//	update <key> <value>
//	delete <key>
//	commit
//	abort
//	clear
//
// A transaction must be open (via begin) before create/read/update/delete/
// commit/abort. Only one transaction may be open at a time, matching the
// store's single-writer rule.
func Start(db *kvstore.DB[string, string], r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	fmt.Fprintln(w, "kvstore REPL. Type 'exit' or '\\q' to quit.")

	var tx *kvstore.Transaction[string, string]

	for {
		fmt.Fprint(w, "> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "\\q" {
			if tx != nil {
				_ = tx.Close()
			}
			return
		}

		fields := strings.Fields(line)
		cmd := fields[0]
		args := fields[1:]

		switch cmd {
		case "begin":
			if tx != nil {
				fmt.Fprintln(w, "error: a transaction is already open")
				continue
			}
			tx = db.Begin()
			fmt.Fprintln(w, "ok")

		case "create":
			if !requireTx(w, tx) || !requireArgs(w, args, 2) {
				continue
			}
			if err := tx.Create(args[0], args[1]); err != nil {
				fmt.Fprintln(w, "error:", err)
				continue
			}
			fmt.Fprintln(w, "ok")

		case "read":
			if !requireTx(w, tx) || !requireArgs(w, args, 1) {
				continue
			}
			v, err := tx.Read(args[0])
			if err != nil {
				fmt.Fprintln(w, "error:", err)
				continue
			}
			fmt.Fprintln(w, v)

		case "update":
			if !requireTx(w, tx) || !requireArgs(w, args, 2) {
				continue
			}
			if err := tx.Update(args[0], args[1]); err != nil {
				fmt.Fprintln(w, "error:", err)
				continue
			}
			fmt.Fprintln(w, "ok")

		case "delete":
			if !requireTx(w, tx) || !requireArgs(w, args, 1) {
				continue
			}
			if err := tx.Delete(args[0]); err != nil {
				fmt.Fprintln(w, "error:", err)
				continue
			}
			fmt.Fprintln(w, "ok")

		case "commit":
			if !requireTx(w, tx) {
				continue
			}
			if err := tx.Commit(); err != nil {
				fmt.Fprintln(w, "error:", err)
			} else {
				fmt.Fprintln(w, "ok")
			}
			tx = nil

		case "abort":
			if !requireTx(w, tx) {
				continue
			}
			if err := tx.Abort(); err != nil {
				fmt.Fprintln(w, "error:", err)
			} else {
				fmt.Fprintln(w, "ok")
			}
			tx = nil

		case "clear":
			if tx != nil {
				fmt.Fprintln(w, "error: close the open transaction before clear")
				continue
			}
			if err := db.Clear(); err != nil {
				fmt.Fprintln(w, "error:", err)
				continue
			}
			fmt.Fprintln(w, "ok")

		default:
			fmt.Fprintf(w, "unknown command %q\n", cmd)
		}
	}
}

func requireTx(w io.Writer, tx *kvstore.Transaction[string, string]) bool {
	if tx == nil {
		fmt.Fprintln(w, "error: no open transaction, run begin first")
		return false
	}
	return true
}

func requireArgs(w io.Writer, args []string, n int) bool {
	if len(args) < n {
		fmt.Fprintln(w, "error: missing arguments")
		return false
	}
	return true
}
