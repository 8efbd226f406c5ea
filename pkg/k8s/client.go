package k8s

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	apiextclient "k8s.io/apiextensions-apiserver/pkg/client/clientset/clientset"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	// RequestTimeout bounds every upstream API call. Search and health
	// aggregation inherit this as their per-call hard timeout.
	RequestTimeout = 30 * time.Second

	configDebounce     = 500 * time.Millisecond
	configPollInterval = 5 * time.Second
)

// Client is the single gateway to the cluster API. It is constructed once at
// startup and passed by reference for the process lifetime; there is no
// implicit reinitialization beyond kubeconfig hot reload.
type Client struct {
	mu         sync.RWMutex
	kubeconfig string
	clientset  kubernetes.Interface
	dynClient  dynamic.Interface
	apiext     apiextclient.Interface
	restConfig *rest.Config
	watcher    *fsnotify.Watcher
	stopWatch  chan struct{}
	onReload   func()

	// getBuildLog is replaceable for tests; the default issues a raw GET
	// against the build log subresource.
	getBuildLog func(ctx context.Context, namespace, name string) (string, error)
}

// NewClient creates a cluster gateway from the given kubeconfig path. An
// empty path falls back to $KUBECONFIG_PATH, $KUBECONFIG, then
// ~/.kube/config. A missing kubeconfig is not an error: the client tries
// in-cluster config, and failing that stays unavailable so that callers can
// report "cluster API not available" instead of crashing.
func NewClient(kubeconfig string) (*Client, error) {
	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG_PATH")
	}
	if kubeconfig == "" {
		kubeconfig = os.Getenv("KUBECONFIG")
	}
	if kubeconfig == "" {
		home, _ := os.UserHomeDir()
		kubeconfig = filepath.Join(home, ".kube", "config")
	}

	c := &Client{kubeconfig: kubeconfig}
	c.getBuildLog = c.fetchBuildLog

	if err := c.connect(); err != nil {
		log.Printf("Could not load cluster config (%s): %v", classifyError(err.Error()), err)
	}

	return c, nil
}

// connect builds the typed, dynamic, and apiextensions clients from the
// kubeconfig file, or from in-cluster config when the file does not exist.
func (c *Client) connect() error {
	var config *rest.Config
	var err error

	if _, statErr := os.Stat(c.kubeconfig); statErr == nil {
		config, err = clientcmd.BuildConfigFromFlags("", c.kubeconfig)
	} else {
		config, err = rest.InClusterConfig()
	}
	if err != nil {
		return err
	}
	config.Timeout = RequestTimeout

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return err
	}
	dynClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return err
	}
	apiext, err := apiextclient.NewForConfig(config)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.restConfig = config
	c.clientset = clientset
	c.dynClient = dynClient
	c.apiext = apiext
	c.mu.Unlock()
	return nil
}

// Available reports whether a live cluster connection exists.
func (c *Client) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clientset != nil && c.dynClient != nil
}

// Typed returns the typed clientset, or ErrUnavailable.
func (c *Client) Typed() (kubernetes.Interface, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.clientset == nil {
		return nil, ErrUnavailable
	}
	return c.clientset, nil
}

// Dynamic returns the dynamic client, or ErrUnavailable.
func (c *Client) Dynamic() (dynamic.Interface, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.dynClient == nil {
		return nil, ErrUnavailable
	}
	return c.dynClient, nil
}

// SetClient injects a typed client (for testing)
func (c *Client) SetClient(clientset kubernetes.Interface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clientset = clientset
}

// SetDynamicClient injects a dynamic client (for testing)
func (c *Client) SetDynamicClient(dynClient dynamic.Interface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dynClient = dynClient
}

// SetAPIExtClient injects an apiextensions client (for testing)
func (c *Client) SetAPIExtClient(apiext apiextclient.Interface) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiext = apiext
}

// SetBuildLogFunc overrides build log fetching (for testing)
func (c *Client) SetBuildLogFunc(fn func(ctx context.Context, namespace, name string) (string, error)) {
	c.getBuildLog = fn
}

// SetOnReload sets a callback invoked after a successful kubeconfig reload
func (c *Client) SetOnReload(callback func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReload = callback
}

// StartWatching starts watching the kubeconfig file for changes.
// Uses fsnotify for instant detection plus a polling fallback to catch
// changes that fsnotify misses (common on macOS after atomic writes).
func (c *Client) StartWatching() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	c.watcher = watcher
	c.stopWatch = make(chan struct{})

	if err := watcher.Add(c.kubeconfig); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch kubeconfig: %w", err)
	}

	// Also watch the directory (for editors that do atomic saves)
	if err := watcher.Add(filepath.Dir(c.kubeconfig)); err != nil {
		log.Printf("Warning: could not watch kubeconfig directory: %v", err)
	}

	go c.watchLoop()
	log.Printf("Watching kubeconfig for changes: %s", c.kubeconfig)
	return nil
}

// StopWatching stops the kubeconfig watcher
func (c *Client) StopWatching() {
	if c.stopWatch != nil {
		close(c.stopWatch)
	}
	if c.watcher != nil {
		c.watcher.Close()
	}
}

func (c *Client) watchLoop() {
	var debounceTimer *time.Timer

	pollTicker := time.NewTicker(configPollInterval)
	defer pollTicker.Stop()
	var lastModTime time.Time
	if info, err := os.Stat(c.kubeconfig); err == nil {
		lastModTime = info.ModTime()
	}

	triggerReload := func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(configDebounce, c.reloadAndNotify)
	}

	for {
		select {
		case <-c.stopWatch:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Name == c.kubeconfig || filepath.Base(event.Name) == filepath.Base(c.kubeconfig) {
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					if info, err := os.Stat(c.kubeconfig); err == nil {
						lastModTime = info.ModTime()
					}
					triggerReload()
				}
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Kubeconfig watcher error: %v", err)
		case <-pollTicker.C:
			info, err := os.Stat(c.kubeconfig)
			if err != nil {
				continue
			}
			if info.ModTime() != lastModTime {
				lastModTime = info.ModTime()
				triggerReload()
			}
		}
	}
}

// reloadAndNotify rebuilds the clients and notifies listeners. After a
// successful reload the file watch is re-added to survive inode changes from
// atomic writes.
func (c *Client) reloadAndNotify() {
	log.Printf("Kubeconfig changed, reloading...")
	if err := c.connect(); err != nil {
		log.Printf("Error reloading kubeconfig: %v", err)
		return
	}

	if c.watcher != nil {
		_ = c.watcher.Remove(c.kubeconfig)
		if err := c.watcher.Add(c.kubeconfig); err != nil {
			log.Printf("Warning: could not re-watch kubeconfig file: %v", err)
		}
	}

	c.mu.RLock()
	callback := c.onReload
	c.mu.RUnlock()
	if callback != nil {
		callback()
	}
}
