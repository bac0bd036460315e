package notify

import (
	"fmt"
	"os"
	"strings"

	"github.com/fd0/affiliations/process"
	"github.com/gregdel/pushover"
	"github.com/sirupsen/logrus"
)

const (
	tokenEnv      = "AFFILIATIONS_PUSHOVER_TOKEN"
	recipientsEnv = "AFFILIATIONS_PUSHOVER_RECIPIENTS"
)

// Message returns the text sent at the end of a run.
func Message(conference, output string, stats process.Stats) string {
	return fmt.Sprintf("Affiliations for %v written to %v: %v", conference, output, stats)
}

// Notify sends a summary of the run to the pushover recipients configured in
// the environment. Errors are only logged.
func Notify(logger logrus.FieldLogger, conference, output string, stats process.Stats) {
	log := logger.WithField("component", "notify")

	token := os.Getenv(tokenEnv)
	if token == "" {
		log.Warnf("no pushover token found in $%v, skipping notification", tokenEnv)

		return
	}

	recipients := os.Getenv(recipientsEnv)
	if recipients == "" {
		log.Warnf("no recipients found in $%v, skipping notification", recipientsEnv)

		return
	}

	app := pushover.New(token)

	message := pushover.NewMessageWithTitle(
		Message(conference, output, stats),
		"Affiliations: run finished",
	)

	for _, r := range strings.Split(recipients, ",") {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}

		response, err := app.SendMessage(message, pushover.NewRecipient(r))
		if err != nil {
			log.Warnf("unable to send message: %v", err)

			continue
		}

		log.Debugf("response from pushover: %v", response)
	}
}
