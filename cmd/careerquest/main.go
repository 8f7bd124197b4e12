// Command careerquest serves the CareerQuest auth and session API.
package main

import (
	"log"

	"careerquest/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
