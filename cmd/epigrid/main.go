package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "models":
		if err := models(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "validate":
		if err := validate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "simulate":
		if err := simulate(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "sweep":
		if err := sweep(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "runs":
		if err := runs(args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Println("epigrid version 1.0.0")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`epigrid - spatial compartmental epidemic simulation

Usage:
  epigrid <command> [options]

Commands:
  models     List the built-in compartment models
  validate   Check a rate parameterisation against a model
  simulate   Run a gridded epidemic and record the trajectory
  sweep      Evaluate outcomes across transmission levels
  runs       List runs stored in a results database
  help       Show this help message
  version    Show version information

Examples:
  # See what each model needs
  epigrid models sei3hrd

  # Run a year of SEI3HRD on a 4x4 landscape
  epigrid simulate --model sei3hrd --rates "incubation_asymp=0.2,..." \
      --beta-force 0.0005 --beta-env 0.0001 --output run.csv

  # Sweep contact transmission
  epigrid sweep --model sir --rates "recovery=0.1,virus_growth=0.2" \
      --beta "0.0001:0.01:10" --output sweep.json

For command-specific help, run:
  epigrid <command> --help`)
}
