package main

import (
	"os"

	"github.com/blockplan-io/blockplan/cmd/blockplan/run"
	"github.com/blockplan-io/blockplan/utils/log"
)

var gitCommitID = "dev"

func main() {
	printWelcome()
	run.Execute()
}

func printWelcome() {
	if gitCommitID == "" {
		gitCommitID = "dev"
	}
	log.Info("-------- Welcome to use Blockplan --------")
	log.Infof("Git Commit ID : %s", gitCommitID)
	log.Infof("node name : %s", os.Getenv("NODE_NAME"))
	log.Info("------------------------------------")
}
