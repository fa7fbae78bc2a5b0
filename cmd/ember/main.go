// Command ember is the command-line interface to the Ember chain: key and
// tag management, relay sync, ledger queries, payments, and mining.
package main

import "github.com/ember-net/ember-chain/cmd/ember/cmd"

func main() {
	cmd.Execute()
}
