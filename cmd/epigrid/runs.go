package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pflow-xyz/go-epigrid/record"
)

func runs(args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	store := fs.String("store", "runs.db", "SQLite database written by 'epigrid simulate --store'")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: epigrid runs [options]

List runs stored in a results database, newest first.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := record.Open(*store)
	if err != nil {
		return err
	}
	defer db.Close()

	infos, err := db.ListRuns()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No runs stored")
		return nil
	}
	fmt.Printf("%-36s  %-8s  %6s  %6s  %s\n", "RUN", "MODEL", "DIM", "FRAMES", "CREATED")
	for _, info := range infos {
		fmt.Printf("%-36s  %-8s  %6d  %6d  %s\n",
			info.ID, info.Model, info.Dim, info.Frames, info.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
