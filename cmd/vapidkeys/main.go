// Command vapidkeys prints a fresh VAPID keypair in .env format.
package main

import (
	"fmt"

	"github.com/lumiere-studio/backend/internal/logging"
	"github.com/lumiere-studio/backend/internal/push"
)

func main() {
	logging.Setup("INFO")

	public, private, err := push.GenerateVAPIDKeys()
	if err != nil {
		logging.Fatal("generate VAPID keys failed", "error", err)
	}
	fmt.Printf("VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", public, private)
}
