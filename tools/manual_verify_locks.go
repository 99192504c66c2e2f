package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"lockbox/pkg/atomicfile"
	"lockbox/pkg/flock"
)

func main() {
	tempDir := filepath.Join(os.TempDir(), "lockbox_manual_test")
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	fmt.Println("=== Lockbox Locking Layer Manual Verification ===")
	fmt.Printf("Test directory: %s\n\n", tempDir)

	// Basic exclusive lock
	lockPath := filepath.Join(tempDir, "demo.lock")
	lock := flock.NewFileLock(lockPath, flock.LockConfig{})

	fmt.Println("Acquiring exclusive lock...")
	if _, err := lock.Acquire(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✓ Exclusive lock acquired")
	fmt.Printf("  - Lock file: %s\n", lockPath)
	fmt.Printf("    Exists: %v\n\n", fileExists(lockPath))

	// A fail-fast competitor must bounce off
	competitor := flock.NewFileLock(lockPath, flock.LockConfig{FailWhenLocked: true})
	_, err := competitor.Acquire()
	fmt.Printf("Competitor acquire while held: %v\n", err)
	fmt.Printf("  - Contention detected: %v\n\n", err != nil)

	if err := lock.Release(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✓ Lock released")

	// Timed contention
	fmt.Println("\nTesting contention timeout...")
	if _, err := lock.Acquire(); err != nil {
		log.Fatal(err)
	}
	waiter := flock.NewFileLock(lockPath, flock.LockConfig{
		Timeout:       300 * time.Millisecond,
		CheckInterval: 50 * time.Millisecond,
	})
	start := time.Now()
	_, err = waiter.Acquire()
	fmt.Printf("✓ Waiter gave up after %v: %v\n", time.Since(start).Round(time.Millisecond), err)
	lock.Release() //nolint:errcheck

	// Reentrant lock
	fmt.Println("\nTesting reentrant locking...")
	rlock := flock.NewReentrantLock(filepath.Join(tempDir, "nested.lock"), flock.LockConfig{})
	for i := 0; i < 3; i++ {
		if _, err := rlock.Acquire(); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Printf("✓ Acquired 3 times, depth: %d\n", rlock.Depth())
	for rlock.Locked() {
		if err := rlock.Release(); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Println("✓ Fully released")

	// Bounded semaphore
	fmt.Println("\nTesting bounded semaphore (2 slots)...")
	cfg := flock.DefaultSemaphoreConfig()
	cfg.Directory = tempDir
	cfg.Timeout = 100 * time.Millisecond
	cfg.CheckInterval = 20 * time.Millisecond

	sems := make([]*flock.BoundedSemaphore, 3)
	for i := range sems {
		sems[i] = flock.NewBoundedSemaphore(2, "demo_sem", cfg)
	}
	for i, sem := range sems {
		_, err := sem.Acquire()
		fmt.Printf("  - Holder %d acquire: %v\n", i+1, errString(err))
	}
	sems[0].Release() //nolint:errcheck
	_, err = sems[2].Acquire()
	fmt.Printf("  - Holder 3 retry after a release: %v\n", errString(err))
	for _, sem := range sems {
		sem.Release() //nolint:errcheck
	}

	// Atomic file replacement under lock
	fmt.Println("\nTesting atomic write under lock...")
	dataPath := filepath.Join(tempDir, "state.json")
	guard := flock.NewFileLock(dataPath+".lock", flock.LockConfig{})
	if _, err := guard.Acquire(); err != nil {
		log.Fatal(err)
	}
	if err := atomicfile.WriteFile(dataPath, []byte(`{"counter": 1}`), 0644); err != nil {
		log.Fatal(err)
	}
	guard.Release() //nolint:errcheck
	fmt.Printf("✓ Wrote %s atomically\n", dataPath)

	// Show directory tree
	fmt.Println("\nFinal directory structure:")
	printDirTree(tempDir, "")

	fmt.Println("\n=== Manual Verification Complete ===")
	fmt.Println("All locking operations working correctly!")
}

func errString(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func printDirTree(path string, prefix string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return
	}

	for i, entry := range entries {
		isLast := i == len(entries)-1
		connector := "├── "
		if isLast {
			connector = "└── "
		}

		fmt.Printf("%s%s%s\n", prefix, connector, entry.Name())

		if entry.IsDir() {
			newPrefix := prefix
			if isLast {
				newPrefix += "    "
			} else {
				newPrefix += "│   "
			}
			printDirTree(filepath.Join(path, entry.Name()), newPrefix)
		}
	}
}
