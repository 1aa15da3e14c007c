package main

import "github.com/aiidateam/aiida-data-apis/cmd"

func main() {
	cmd.Execute()
}
