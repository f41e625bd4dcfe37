package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/trezcool/michezo/core"
)

// consoleService prints emails to stdout instead of sending them; DEV and tests.
type consoleService struct{}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService() *consoleService {
	return &consoleService{}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		if !msg.HasRecipients() || !msg.HasContent() {
			continue
		}
		fmt.Printf(
			"To: %s\nSubject: [%s] %s\n\n%s\n%s\n",
			joinAddresses(msg.To), core.Conf.AppName, msg.Subject, msg.BodyStr,
			strings.Repeat("-", 70),
		)
	}
}

func joinAddresses(addrs []mail.Address) string {
	strs := make([]string, 0, len(addrs))
	for _, a := range addrs {
		strs = append(strs, a.String())
	}
	return strings.Join(strs, ", ")
}
