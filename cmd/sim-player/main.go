package main

import (
	"bytes"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"sign-arena/internal/identity"
)

type snapshot struct {
	SessionID     string `json:"session_id"`
	Phase         string `json:"phase"`
	BlockReason   string `json:"block_reason"`
	Target        string `json:"target"`
	CurrentIndex  int    `json:"current_index"`
	Score         int64  `json:"score"`
	TotalElapsed  int64  `json:"total_elapsed"`
	ItemRemaining int    `json:"item_remaining"`
}

// sim-player exercises a running server end to end: it opens a session
// and posts random landmark frames, skipping any letter that lingers.
func main() {
	baseURL := getenv("BASE_URL", "http://localhost:8080")
	mode := getenv("MODE", "practice")
	vectorLen := 63

	token := os.Getenv("TOKEN")
	if token == "" {
		secret := getenv("AUTH_SECRET", "")
		if secret == "" {
			log.Fatal("set TOKEN or AUTH_SECRET")
		}
		verifier, err := identity.NewVerifier(secret)
		if err != nil {
			log.Fatal(err)
		}
		token, err = verifier.Sign(identity.User{ID: getenv("USER_ID", "sim-player"), Email: getenv("EMAIL", "sim@example.com")}, time.Hour)
		if err != nil {
			log.Fatal(err)
		}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	snap := postJSON(client, baseURL+"/api/sessions", token, map[string]string{"mode": mode})
	log.Printf("session %s phase=%s", snap.SessionID, snap.Phase)
	if snap.Phase == "blocked" {
		log.Fatalf("blocked: %s", snap.BlockReason)
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	lastIndex := -1
	sameIndexSince := time.Now()
	for {
		vec := make([]float64, vectorLen)
		for i := range vec {
			vec[i] = rnd.Float64()
		}
		sessionID := snap.SessionID
		snap = postJSON(client, baseURL+"/api/sessions/"+sessionID+"/frames", token, map[string]any{"landmarks": vec})
		snap.SessionID = sessionID
		if snap.Phase == "finished" {
			log.Printf("finished score=%d elapsed=%ds", snap.Score, snap.TotalElapsed)
			return
		}
		if snap.CurrentIndex != lastIndex {
			log.Printf("target %s (index %d, score %d)", snap.Target, snap.CurrentIndex, snap.Score)
			lastIndex = snap.CurrentIndex
			sameIndexSince = time.Now()
		} else if time.Since(sameIndexSince) > 5*time.Second {
			snap = postJSON(client, baseURL+"/api/sessions/"+snap.SessionID+"/skip", token, nil)
			log.Printf("skipped to index %d", snap.CurrentIndex)
			sameIndexSince = time.Now()
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func postJSON(client *http.Client, url, token string, body any) snapshot {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			log.Fatal(err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		log.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		// The session finished between polls.
		return snapshot{Phase: "finished"}
	}
	if resp.StatusCode >= 300 {
		var e map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&e)
		log.Fatalf("%s -> %d %v", url, resp.StatusCode, e)
	}
	var snap snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		log.Fatal(err)
	}
	return snap
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
