// Build tasks for specrun. Run from the repository root:
//
//	go run ./.bld            # default: all
//	go run ./.bld test       # a single task
//	go run ./.bld -h         # list tasks
package main

import (
	"github.com/goyek/goyek/v3"
	"github.com/goyek/x/boot"
	"github.com/goyek/x/cmd"
)

var format = goyek.Define(goyek.Task{
	Name:  "fmt",
	Usage: "format Go code",
	Action: func(a *goyek.A) {
		cmd.Exec(a, "gofmt -l -w .")
	},
})

var vet = goyek.Define(goyek.Task{
	Name:  "vet",
	Usage: "examine the code with go vet",
	Action: func(a *goyek.A) {
		cmd.Exec(a, "go vet ./...")
	},
})

var test = goyek.Define(goyek.Task{
	Name:  "test",
	Usage: "run tests with the race detector",
	Action: func(a *goyek.A) {
		cmd.Exec(a, "go test -race -cover ./...")
	},
})

var build = goyek.Define(goyek.Task{
	Name:  "build",
	Usage: "build the specrun binary",
	Action: func(a *goyek.A) {
		cmd.Exec(a, "go build -o specrun .")
	},
})

var all = goyek.Define(goyek.Task{
	Name:  "all",
	Usage: "fmt, vet, test and build",
	Deps:  goyek.Deps{format, vet, test, build},
})

func main() {
	goyek.SetDefault(all)
	boot.Main()
}
