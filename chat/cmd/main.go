package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"docqa/types"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

var (
	promptColor = color.New(color.FgGreen, color.Bold)
	infoColor   = color.New(color.FgCyan)
	errColor    = color.New(color.FgRed)
	citeColor   = color.New(color.FgYellow)
)

type client struct {
	baseURL   string
	userID    string
	sessionID string
	http      *http.Client
}

func main() {
	serverURL := flag.String("server", "http://localhost:3000", "API server base URL")
	userID := flag.String("user", "local", "user namespace")
	sessionID := flag.String("session", "", "session id to resume (new session when empty)")
	flag.Parse()

	c := &client{
		baseURL:   strings.TrimRight(*serverURL, "/"),
		userID:    *userID,
		sessionID: *sessionID,
		http:      &http.Client{Timeout: 5 * time.Minute},
	}
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}

	infoColor.Printf("Connected to %s as %s (session %s)\n", c.baseURL, c.userID, c.sessionID)
	infoColor.Println("Commands: 'upload <path>', 'docs', 'exit'. Anything else is a question.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for {
		promptColor.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return
		case line == "docs":
			c.listDocuments()
		case strings.HasPrefix(line, "upload "):
			c.upload(strings.TrimSpace(strings.TrimPrefix(line, "upload ")))
		default:
			c.ask(line)
		}
	}
}

func (c *client) ask(question string) {
	body, _ := json.Marshal(types.AskParams{Question: question})
	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/ask", bytes.NewReader(body))
	if err != nil {
		errColor.Println("request error:", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		errColor.Println("request failed:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		printAPIError(resp)
		return
	}

	var answer types.AskResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		errColor.Println("bad response:", err)
		return
	}
	c.sessionID = answer.SessionID

	fmt.Println(answer.Answer)
	if len(answer.Citations) > 0 {
		citeColor.Print("Sources: ")
		parts := make([]string, len(answer.Citations))
		for i, cit := range answer.Citations {
			parts[i] = fmt.Sprintf("[%d] (%s)", cit.Rank, cit.Filename)
		}
		citeColor.Println(strings.Join(parts, ", "))
	}
}

func (c *client) upload(path string) {
	f, err := os.Open(path)
	if err != nil {
		errColor.Println("cannot open file:", err)
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		errColor.Println("upload error:", err)
		return
	}
	if _, err := io.Copy(part, f); err != nil {
		errColor.Println("upload error:", err)
		return
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/v1/documents", &buf)
	if err != nil {
		errColor.Println("request error:", err)
		return
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		errColor.Println("upload failed:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		printAPIError(resp)
		return
	}

	var result types.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		errColor.Println("bad response:", err)
		return
	}
	if result.Status == types.IngestDuplicate {
		infoColor.Printf("Already ingested: %s\n", result.Filename)
		return
	}
	infoColor.Printf("Ingested %s (%d chunks)\n", result.Filename, result.ChunksCommitted)
}

func (c *client) listDocuments() {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+"/api/v1/documents", nil)
	if err != nil {
		errColor.Println("request error:", err)
		return
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		errColor.Println("request failed:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		printAPIError(resp)
		return
	}

	var docs []types.DocumentInfo
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		errColor.Println("bad response:", err)
		return
	}
	if len(docs) == 0 {
		infoColor.Println("No documents uploaded yet.")
		return
	}
	for _, d := range docs {
		fmt.Printf("- %s (%d chunks, uploaded %s)\n", d.Filename, d.ChunkCount, d.UploadedAt.Format(time.RFC3339))
	}
}

func (c *client) setHeaders(req *http.Request) {
	req.Header.Set("X-User-ID", c.userID)
	req.Header.Set("X-Session-ID", c.sessionID)
}

func printAPIError(resp *http.Response) {
	body, _ := io.ReadAll(resp.Body)
	errColor.Printf("server returned %d: %s\n", resp.StatusCode, strings.TrimSpace(string(body)))
}
