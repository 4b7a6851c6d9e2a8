package main

import (
	"flag"
	"fmt"
	"log"

	"payroll-gateway/internal/banksim"
)

func main() {
	var (
		port         int
		username     string
		password     string
		clientID     string
		clientSecret string
		verbose      bool
	)
	flag.IntVar(&port, "port", 9443, "listen port")
	flag.StringVar(&username, "username", "saib-user", "accepted OAuth username")
	flag.StringVar(&password, "password", "saib-pass", "accepted OAuth password")
	flag.StringVar(&clientID, "client-id", "client-id", "accepted client id")
	flag.StringVar(&clientSecret, "client-secret", "client-secret", "accepted client secret")
	flag.BoolVar(&verbose, "verbose", false, "log every request")
	flag.Parse()

	sim := banksim.New(banksim.Config{
		Username:     username,
		Password:     password,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Verbose:      verbose,
	})

	addr := fmt.Sprintf(":%d", port)
	log.Printf("starting SAIB bank simulator on %s", addr)
	if err := sim.Router().Run(addr); err != nil {
		log.Fatalf("simulator stopped: %v", err)
	}
}
