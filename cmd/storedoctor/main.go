// Command storedoctor runs data-integrity sweeps over a JSON key-value store.
package main

import "github.com/studydesk/storedoctor/internal/cli"

func main() {
	cli.Execute()
}
