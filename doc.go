// Package eqsatopt implements equality saturation over boolean logic
// networks: an e-graph of AND/XOR/NOT terms, a rewrite-rule engine that
// saturates it to a fixpoint, slack analysis that bounds how much depth
// each e-class can absorb without lengthening the critical path, and two
// extractors (a bounded greedy DAG extractor and an exact 0-1 ILP
// extractor) that pull a multiplicative-depth/complexity-optimal netlist
// back out.
//
// Subpackages:
//
//	term/     — the AND/XOR/NOT/CONST/SYMBOL/CONCAT expression tree
//	egraph/   — e-classes, e-nodes, union-find, hash-consing, rebuild
//	rewriter/ — rule-file parsing, pattern matching, saturation loop
//	slack/    — forward/backward depth fixpoints and per-class slack bounds
//	extract/  — cost model, greedy DAG extraction, exact ILP extraction
//	writer/   — netlist emission, XOR expansion, critical-path reporting
//	netlist/  — .eqn/.seqn parsing, dialect conversion, DOT dumping
//	driver/   — the top-level SatMcIlp/SatMcMdDag/TracingHEConverge/MultiIter flows
//	cmd/eqsatopt/ — the CLI entrypoint
package eqsatopt
