// Command notetree-tool computes tree constants and note commitments offline.
package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/Bren2010/notetree/crypto/commitments"
	"github.com/Bren2010/notetree/crypto/suites"
	"github.com/Bren2010/notetree/tree/incremental"
)

const usage = "Usage: notetree-tool (zeroes <suite> <levels> | commit <suite> <body>)"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	flag.Parse()
	if flag.NArg() != 3 {
		log.Fatal(usage)
	}
	cs, err := suites.FromName(flag.Arg(1))
	if err != nil {
		log.Fatal(err)
	}

	switch flag.Arg(0) {
	case "zeroes":
		levels, err := strconv.Atoi(flag.Arg(2))
		if err != nil {
			log.Fatalf("failed to parse levels: %v", err)
		}
		printZeroes(cs, levels)
	case "commit":
		printCommitment(cs, []byte(flag.Arg(2)))
	default:
		log.Fatal(usage)
	}
}

func printZeroes(cs suites.CipherSuite, levels int) {
	tree, err := incremental.New(cs, levels)
	if err != nil {
		log.Fatal(err)
	}
	for i, z := range tree.Zeroes() {
		fmt.Printf("zeroes[%d]:  %v\n", i, z)
	}
	fmt.Printf("Empty Root: %v\n", tree.Root())
	fmt.Printf("Capacity:   %v\n", tree.Capacity())
}

func printCommitment(cs suites.CipherSuite, body []byte) {
	opening, err := commitments.GenerateOpening(cs)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Opening:    %x\n", opening)
	fmt.Printf("Commitment: %x\n", commitments.Commit(cs, opening, body))
}
