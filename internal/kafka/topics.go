package kafka

import (
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicTicketIssued    = "workshop.ticket.issued"
	TopicTicketCheckedIn = "workshop.ticket.checkedin"
)

// TicketEvent is the payload published on both ticket topics.
type TicketEvent struct {
	TicketRef string    `json:"ticketRef"`
	StudentID string    `json:"studentId"`
	IsUsed    bool      `json:"isUsed"`
	At        time.Time `json:"at"`
}

// EnsureTopicsExist creates the given topics on the cluster controller
// if they are not already present. Failures on one topic do not stop
// the others.
func EnsureTopicsExist(brokers []string, topics []string) error {
	conn, err := kafka.Dial("tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			log.Printf("creating topic %s: %v", topic, err)
		}
	}
	return nil
}
