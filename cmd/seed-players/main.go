package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/chess-ranking/internal/domain"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

// Platforms a generated player can be registered on
const (
	platformChessCom = "chess_com"
	platformLichess  = "lichess"
	platformBoth     = "both"
)

var namePrefixes = []string{
	"Knight", "Bishop", "Rook", "Pawn", "Castle", "Gambit", "Fianchetto", "Zugzwang",
	"Endgame", "Opening", "Sicilian", "Najdorf", "Caro", "Dragon", "Grunfeld", "Catalan",
	"Berlin", "Scotch", "Italian", "London", "Slav", "Benoni", "Pirc", "Alekhine",
}

func init() {
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name:  "seed-players",
		Usage: "publish player registrations to Kafka",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "brokers",
				Value:   cli.NewStringSlice("localhost:9092"),
				EnvVars: []string{"KAFKA_BROKERS"},
			},
			&cli.StringFlag{
				Name:    "topic",
				Value:   "player-registrations",
				EnvVars: []string{"KAFKA_TOPIC"},
			},
		},
		Commands: []*cli.Command{
			commandGenerate(),
			commandRegister(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandGenerate() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "publish registrations for generated usernames",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "count",
				Value: 100,
			},
			&cli.StringFlag{
				Name:  "platform",
				Value: platformBoth,
				Usage: "chess_com, lichess or both",
			},
		},
		Action: func(c *cli.Context) error {
			regs, err := generateRegistrations(c.Int("count"), c.String("platform"))
			if err != nil {
				return err
			}
			return publish(c, regs)
		},
	}
}

func commandRegister() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "publish a single registration",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "chess-com"},
			&cli.StringFlag{Name: "lichess"},
		},
		Action: func(c *cli.Context) error {
			reg := newRegistration(c.String("chess-com"), c.String("lichess"))
			return publish(c, []domain.PlayerRegistration{reg})
		},
	}
}

func playerName(idx int) string {
	prefix := namePrefixes[idx%len(namePrefixes)]
	suffix := idx/len(namePrefixes) + 1
	return fmt.Sprintf("%s%d", prefix, suffix)
}

func newRegistration(chessCom, lichess string) domain.PlayerRegistration {
	reg := domain.PlayerRegistration{RequestID: uuid.NewString()}
	if s := strings.TrimSpace(chessCom); s != "" {
		reg.ChessComUsername = domain.StringPtr(s)
	}
	if s := strings.TrimSpace(lichess); s != "" {
		reg.LichessUsername = domain.StringPtr(s)
	}
	return reg
}

func generateRegistrations(count int, platform string) ([]domain.PlayerRegistration, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive, got %d", count)
	}

	regs := make([]domain.PlayerRegistration, 0, count)
	for i := 0; i < count; i++ {
		name := playerName(i)
		switch platform {
		case platformChessCom:
			regs = append(regs, newRegistration(name, ""))
		case platformLichess:
			regs = append(regs, newRegistration("", name))
		case platformBoth:
			regs = append(regs, newRegistration(name, strings.ToLower(name)))
		default:
			return nil, fmt.Errorf("unknown platform %q", platform)
		}
	}
	return regs, nil
}

func toMessages(topic string, regs []domain.PlayerRegistration) ([]*sarama.ProducerMessage, error) {
	msgs := make([]*sarama.ProducerMessage, 0, len(regs))
	for _, reg := range regs {
		data, err := json.Marshal(reg)
		if err != nil {
			return nil, fmt.Errorf("encoding registration: %w", err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(reg.RequestID),
			Value: sarama.ByteEncoder(data),
		})
	}
	return msgs, nil
}

func publish(c *cli.Context, regs []domain.PlayerRegistration) error {
	topic := c.String("topic")
	msgs, err := toMessages(topic, regs)
	if err != nil {
		return err
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(c.StringSlice("brokers"), config)
	if err != nil {
		return fmt.Errorf("creating producer: %w", err)
	}
	defer producer.Close()

	start := time.Now()
	if err := producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("sending registrations: %w", err)
	}

	log.Printf("published %d registrations to %s in %s", len(msgs), topic, time.Since(start).Round(time.Millisecond))
	return nil
}
