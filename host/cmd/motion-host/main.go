package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/shlex"

	"motionstation/host/mcu"
	"motionstation/host/serial"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "Serial device path")
	baud    = flag.Int("baud", serial.DefaultBaud, "Baud rate")
	parity  = flag.String("parity", "N", "Parity: N, E or O")
	timeout = flag.Duration("timeout", time.Second, "Response timeout")
	verbose = flag.Bool("verbose", false, "Enable station debug output")
)

func main() {
	flag.Parse()

	fmt.Println("Motion Station Host")
	fmt.Println("===================")

	mcuConn := mcu.NewMCU()
	mcuConn.Timeout = *timeout
	mcuConn.SetLogger(log.New(os.Stderr, "station: ", log.Ltime))

	fmt.Printf("Connecting to station on %s...\n", *device)
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	cfg.Parity = 0 // rejected by Open unless the flag names one
	if p := strings.ToUpper(*parity); len(p) == 1 {
		cfg.Parity = serial.Parity(p[0])
	}
	if err := mcuConn.ConnectWithConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	if err := mcuConn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Connected: %s\n", mcuConn.GetDictionary().Version)

	if *verbose {
		if err := mcuConn.SetDebug(true); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		args, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			// comment only
			continue
		}
		if args[0] == "quit" || args[0] == "exit" || args[0] == "q" {
			fmt.Println("Goodbye!")
			return
		}
		if err := run(mcuConn, args, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}
