package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type TranscriptionResponse struct {
	SegmentID   string    `json:"segment_id"`
	Text        string    `json:"text"`
	Confidence  float32   `json:"confidence"`
	Language    string    `json:"language"`
	Duration    float64   `json:"duration"`
	ProcessedAt time.Time `json:"processed_at"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	// Get segment metadata
	segmentID := r.FormValue("segment_id")
	mimeType := r.FormValue("mime_type")
	sampleRate := r.FormValue("sample_rate")
	duration := r.FormValue("duration")
	truncated := r.FormValue("truncated")
	startTime := r.FormValue("start_time")
	endTime := r.FormValue("end_time")

	// Get request metadata
	requestID := r.FormValue("request_id")
	serviceName := r.FormValue("service_name")
	serviceVersion := r.FormValue("service_version")
	language := r.FormValue("language")

	// Get audio file
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Read file content to get size
	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	// Log comprehensive request information
	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  📊 Segment Info:")
	log.Printf("    Request ID: %s", requestID)
	log.Printf("    Segment ID: %s", segmentID)
	log.Printf("    Duration: %s seconds", duration)
	log.Printf("    Truncated: %s", truncated)
	log.Printf("    Sample Rate: %s Hz", sampleRate)
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  ⏱️  Timing:")
	log.Printf("    Start: %s", startTime)
	log.Printf("    End: %s", endTime)
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  🎧 Audio Info:")
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))
	log.Printf("    MIME Type: %s", mimeType)
	log.Printf("    Language: %s", language)
	log.Printf("  ═══════════════════════════════════")
	log.Printf("  🛠️  Service Info:")
	log.Printf("    Service: %s v%s", serviceName, serviceVersion)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	// Create fake transcription response
	response := TranscriptionResponse{
		SegmentID:   segmentID,
		Text:        "make the background a calm shade of blue",
		Confidence:  0.95,
		Language:    "en",
		Duration:    parseFloat64(duration),
		ProcessedAt: time.Now(),
	}

	// Send JSON response
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPTION RESPONSE SENT: '%s'", response.Text)
	log.Println("---")
}

func parseFloat64(s string) float64 {
	var val float64
	fmt.Sscanf(s, "%f", &val)
	return val
}

func main() {
	http.HandleFunc("/transcribe", transcribeHandler)

	port := ":9000"
	log.Printf("🚀 Test Transcription Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/transcribe", port)
	log.Println("💡 Update your config to use: http://localhost:9000/transcribe")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
