// Command uploadctl pushes a local video through the whole pipeline from
// the terminal: create a direct upload, stream the file up in chunks, then
// trigger processing and relay the progress lines.
//
// Usage:
//
//	go run ./cmd/uploadctl -api http://localhost:8080 -file talk.mp4
//
// OWNER_EMAIL and OWNER_PASSWORD are read from the environment (or .env).
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/agrostream/studio-api/internal/domain/workflow"
	"github.com/agrostream/studio-api/pkg/chunkup"
)

func main() {
	apiBase := flag.String("api", "http://localhost:8080", "studio API base URL")
	filePath := flag.String("file", "", "video file to upload")
	flag.Parse()

	if *filePath == "" {
		log.Fatal("usage: upload_video -file <video> [-api <url>]")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("warning: .env file not found, use system environment variables.")
	}

	ctx := context.Background()
	token, err := login(ctx, *apiBase, os.Getenv("OWNER_EMAIL"), os.Getenv("OWNER_PASSWORD"))
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	uploadID, uploadURL, err := createUpload(ctx, *apiBase, token)
	if err != nil {
		log.Fatalf("cannot create direct upload: %v", err)
	}

	file, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("cannot open file: %v", err)
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		log.Fatalf("cannot stat file: %v", err)
	}

	fmt.Printf("uploading %s (%d bytes) in %d MiB chunks...\n", *filePath, stat.Size(), chunkup.DefaultChunkSize>>20)

	up, err := chunkup.Start(ctx, uploadURL, file, stat.Size(), chunkup.Options{
		Retries: 2,
		OnProgress: func(percent float64) {
			fmt.Printf("\r  %.1f%%", percent)
		},
	})
	if err != nil {
		log.Fatalf("cannot start upload: %v", err)
	}
	if err := up.Wait(); err != nil {
		log.Fatalf("\nupload failed: %v", err)
	}
	fmt.Println("\nupload complete, processing...")

	if err := relayProcessing(ctx, *apiBase, token, uploadID, filepath.Base(*filePath)); err != nil {
		log.Fatalf("processing failed: %v", err)
	}
}

func login(ctx context.Context, apiBase, email, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"email": email, "password": password})
	resp, err := post(ctx, apiBase+"/api/admin/auth/login", "", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login returned status %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func createUpload(ctx context.Context, apiBase, token string) (string, string, error) {
	resp, err := post(ctx, apiBase+"/api/admin/uploads", token, nil)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("create upload returned status %d", resp.StatusCode)
	}
	var out struct {
		UploadID  string `json:"upload_id"`
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", err
	}
	return out.UploadID, out.UploadURL, nil
}

// relayProcessing triggers the streaming endpoint and renders each progress
// line as it arrives.
func relayProcessing(ctx context.Context, apiBase, token, uploadID, filename string) error {
	body, _ := json.Marshal(map[string]string{"upload_id": uploadID, "filename": filename})
	resp, err := post(ctx, apiBase+"/api/admin/uploads/process", token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		e := workflow.ParseLine(scanner.Text())
		switch e.Kind {
		case workflow.KindStep:
			fmt.Printf("== step %d ==\n", e.Step)
		case workflow.KindSuccess:
			fmt.Printf("ok: %s\n", e.Message)
		case workflow.KindError:
			return fmt.Errorf("server reported: %s", e.Message)
		default:
			fmt.Println(e.Message)
		}
	}
	return scanner.Err()
}

func post(ctx context.Context, url, token string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{Timeout: 30 * time.Minute}
	return client.Do(req)
}
