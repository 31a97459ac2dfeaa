package rewriter_test

import (
	"fmt"
	"os"

	"github.com/panther03/eqsatopt-go/rewriter"
)

// ExampleLoadRules_ruleFile demonstrates loading one of the sample rule
// files shipped under testdata/rules/ — the same format a user passes via
// --rules on the command line.
func ExampleLoadRules_ruleFile() {
	f, err := os.Open("../testdata/rules/commutativity.txt")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	defer f.Close()

	rules, err := rewriter.LoadRules(f)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, r := range rules {
		fmt.Printf("%s bidirectional=%v\n", r.Name, r.Bidirectional)
	}
	// Output:
	// and-comm bidirectional=true
	// xor-comm bidirectional=true
}
