package main

import (
	"fmt"
	"os"

	"github.com/djandroidboy/cinder/cli"
)

/*
nexentactl <resource> <command> [flags]
For Eg:
nexentactl check
nexentactl stats --refresh
nexentactl volume create --name volume-1 --id 1 --size 10
nexentactl export ensure --name volume-1
nexentactl migrate --from-cinder --volume-id <id> --dest-pool-name host@backend#pool
*/
func main() {
	if err := cli.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
