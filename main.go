package main

import "github.com/Mohsinsiddi/tokendesk/cmd"

func main() {
	cmd.Execute()
}
