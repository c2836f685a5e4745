package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

// Read-only viewer over the chat store. Scans a key prefix ("msg:" for
// conversations, "user:" for profiles) and renders the records as a table.
func main() {
	dbPath := flag.String("db", database.DefaultPath, "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan (msg: or user:)")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Who", "Detail", "At"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			// Index entries point at primary keys; skip them.
			key := string(item.Key())
			if strings.HasPrefix(key, "msgid:") || strings.HasPrefix(key, "uname:") {
				continue
			}

			err := item.Value(func(v []byte) error {
				table.Append(toRow(key, v))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func toRow(key string, value []byte) []string {
	switch {
	case strings.HasPrefix(key, "msg:"):
		var record struct {
			Sender   string `json:"sender"`
			Receiver string `json:"receiver"`
			Content  string `json:"content"`
			At       string `json:"at"`
		}
		if err := json.Unmarshal(value, &record); err != nil {
			return []string{key, "", fmt.Sprintf("unreadable: %v", err), ""}
		}
		who := record.Sender + " -> " + record.Receiver
		return []string{shorten(key), who, record.Content, record.At}
	case strings.HasPrefix(key, "user:"):
		var record struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			LastSeen string `json:"lastSeen"`
		}
		if err := json.Unmarshal(value, &record); err != nil {
			return []string{key, "", fmt.Sprintf("unreadable: %v", err), ""}
		}
		return []string{shorten(key), record.Username, record.Email, record.LastSeen}
	default:
		return []string{shorten(key), "", fmt.Sprintf("%d bytes", len(value)), ""}
	}
}

// shorten keeps keys readable in narrow terminals.
func shorten(key string) string {
	if len(key) > 48 {
		return key[:45] + "..."
	}
	return key
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)
	return badger.Open(opts)
}
