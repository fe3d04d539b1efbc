package main

import (
	"flag"
	"log"

	"BitcaskDB/bootstrap"
)

func main() {
	flag.Parse()

	if _, err := bootstrap.Run(); err != nil {
		log.Fatal(err)
	}
}
