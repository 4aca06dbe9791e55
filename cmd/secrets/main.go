// cmd/secrets/main.go
//
// fleetapp-secrets – operator CLI for the application and deployment
// secret groups.
//
//	fleetapp-secrets list
//	fleetapp-secrets get-app-secret jwt_secret
//	fleetapp-secrets set-app-secret jwt_secret "my-secret-value"
//	fleetapp-secrets get-deployment-secret ec2_host
//	fleetapp-secrets --region eu-west-1 set-deployment-secret ec2_key_name my-key
//
// Backend, endpoint, and group names follow the same settings layers as
// the web binary (SETTINGS_FILE, then environment).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCommand(openStore).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
