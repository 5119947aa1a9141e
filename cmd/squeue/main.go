// `squeue` -- Report the jobs and job steps of a Slurm cluster
//
// Run `squeue --help` for brief help.

package main

import (
	"os"

	"github.com/SchedMD/slurm-sub064/cli"
	"github.com/SchedMD/slurm-sub064/squeue"
)

func main() {
	os.Exit(cli.Main(squeue.New(), os.Args[1:]))
}
