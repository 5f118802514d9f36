// Command streamclient exercises the transcription flow end to end against a
// running server: it logs in, tails the live transcript stream for an
// appointment, and feeds an audio file to the ingest endpoint in fragments.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type chunkEvent struct {
	Type  string `json:"type"`
	Chunk struct {
		Text      string    `json:"text"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"chunk"`
}

func main() {
	var (
		server        = flag.String("server", "http://localhost:8080", "server base URL")
		email         = flag.String("email", "", "account email")
		password      = flag.String("password", "", "account password")
		appointmentID = flag.String("appointment", "", "appointment id to stream against")
		audioPath     = flag.String("audio", "", "audio file to send as fragments")
		fragmentSize  = flag.Int("fragment-size", 8192, "bytes per audio fragment")
		interval      = flag.Duration("interval", 250*time.Millisecond, "delay between fragments")
	)
	flag.Parse()

	if *email == "" || *password == "" || *appointmentID == "" {
		flag.Usage()
		os.Exit(2)
	}

	token, err := login(*server, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}
	log.Printf("authenticated as %s", *email)

	go tailStream(*server, token, *appointmentID)

	if *audioPath != "" {
		if err := sendAudio(*server, token, *appointmentID, *audioPath, *fragmentSize, *interval); err != nil {
			log.Fatalf("audio upload failed: %v", err)
		}
		log.Printf("finished sending %s, waiting for trailing transcripts", *audioPath)
	}

	// Keep tailing until interrupted.
	select {}
}

func login(server, email, password string) (string, error) {
	body, _ := json.Marshal(loginRequest{Email: email, Password: password})
	resp, err := http.Post(server+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	var parsed loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	return parsed.AccessToken, nil
}

func sendAudio(server, token, appointmentID, path string, fragmentSize int, interval time.Duration) error {
	audio, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/v1/appointments/%s/transcription/audio", server, appointmentID)
	for offset := 0; offset < len(audio); offset += fragmentSize {
		end := offset + fragmentSize
		if end > len(audio) {
			end = len(audio)
		}

		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(audio[offset:end]))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "audio/ogg")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("fragment at %d rejected with status %d", offset, resp.StatusCode)
		}

		time.Sleep(interval)
	}
	return nil
}

func tailStream(server, token, appointmentID string) {
	url := fmt.Sprintf("%s/api/v1/appointments/%s/transcription/stream?token=%s", server, appointmentID, token)
	resp, err := http.Get(url)
	if err != nil {
		log.Fatalf("failed to open transcript stream: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("transcript stream rejected with status %d", resp.StatusCode)
	}
	log.Printf("attached to transcript stream for appointment %s", appointmentID)

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event chunkEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			log.Printf("skipping malformed frame: %v", err)
			continue
		}
		fmt.Printf("[%s] %s\n", event.Chunk.Timestamp.Format(time.TimeOnly), event.Chunk.Text)
	}
	if err := scanner.Err(); err != nil {
		log.Printf("stream closed: %v", err)
	}
}
