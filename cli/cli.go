package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"BitcaskDB/internal/domain"
	"BitcaskDB/internal/platform/client"
)

const usage = `usage: cli [-server URL] <command> [args]

commands:
  set <key> <value>   Store value under key
  get <key>           Print the value stored under key
  rm <key>            Remove key
`

func main() {
	serverUrl := flag.String("server", "http://localhost:3000", "BitcaskDB server URL")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli := client.NewKvClient(*serverUrl)

	switch args[0] {
	case "set":
		if len(args) != 3 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		if _, err := cli.Set(args[1], args[2]); err != nil {
			log.Fatal(err)
		}

	case "get":
		if len(args) != 2 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		value, found, err := cli.Get(args[1])
		if err != nil {
			log.Fatal(err)
		}
		if !found {
			fmt.Println("Key not found")
			return
		}
		fmt.Println(value)

	case "rm":
		if len(args) != 2 {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		if err := cli.Remove(args[1]); err != nil {
			if errors.Is(err, domain.ErrKeyNotFound) {
				fmt.Fprintln(os.Stderr, "Key not found")
				os.Exit(1)
			}
			log.Fatal(err)
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}
