// Command nmeamqtt bridges a GNSS receiver's NMEA-0183/u-blox byte
// stream to an MQTT broker: parsed fields become retained, change-driven
// topics, and a small "cfg/#" control surface reconfigures the bridge at
// runtime. See internal/bridge for the actor that does the real work;
// this file is wiring only, following the flag-driven style of
// hardware/topgnss's own reader command.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bramburn/nmeamqtt/internal/bridge"
	"github.com/bramburn/nmeamqtt/internal/config"
	"github.com/bramburn/nmeamqtt/internal/mqttclient"
	"github.com/sirupsen/logrus"
	"go.bug.st/serial"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the subset of Config the -config YAML file may set;
// CLI flags always win over a value loaded this way.
type fileConfig struct {
	Host      string `yaml:"host"`
	Messages  string `yaml:"messages"`
	Prefix    string `yaml:"prefix"`
	Always    bool   `yaml:"always"`
	DeadTime  int    `yaml:"deadtime"`
	DefTalker string `yaml:"def_talker"`
	QoS       int    `yaml:"qos"`
	KeepAlive int    `yaml:"keepalive"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("nmeamqtt: parsing %s: %w", path, err)
	}
	return fc, nil
}

func main() {
	var (
		host       = flag.String("h", "localhost:1883", "MQTT broker HOST[:PORT]")
		messages   = flag.String("n", "", "sentence enable list, e.g. \"gga,vtg\" or \"-gsv\"")
		prefix     = flag.String("p", "gps/", "MQTT topic prefix")
		always     = flag.Bool("a", false, "always republish every field, even unchanged")
		deadTime   = flag.Int("d", 10, "seconds of silence before alive=0")
		defTalker  = flag.String("D", "gp", "default talker for un-prefixed topics; 0 disables")
		verbosity  = flag.Int("v", 0, "verbosity: 0=warn 1=info 2=debug")
		version    = flag.Bool("V", false, "print version and exit")
		configFile = flag.String("config", "", "optional YAML file of these same settings; flags override it")
		qosFlag    = flag.Int("qos", -1, "MQTT QoS (0/1/2); -1 auto-selects by broker host")
		keepAlive  = flag.Int("keepalive", 10, "MQTT keepalive in seconds")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] [device-or-file]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Println("nmeamqtt 1.0.0")
		os.Exit(0)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	switch {
	case *verbosity >= 2:
		log.SetLevel(logrus.DebugLevel)
	case *verbosity == 1:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.WarnLevel)
	}

	cfg := config.New()
	flagSet := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { flagSet[f.Name] = true })

	if *configFile != "" {
		fc, err := loadFileConfig(*configFile)
		if err != nil {
			fatalf(log, err, "loading config file")
		}
		if fc.Host != "" && !flagSet["h"] {
			*host = fc.Host
		}
		if fc.Messages != "" && !flagSet["n"] {
			*messages = fc.Messages
		}
		if fc.Prefix != "" && !flagSet["p"] {
			*prefix = fc.Prefix
		}
		if fc.Always && !flagSet["a"] {
			*always = fc.Always
		}
		if fc.DeadTime != 0 && !flagSet["d"] {
			*deadTime = fc.DeadTime
		}
		if fc.DefTalker != "" && !flagSet["D"] {
			*defTalker = fc.DefTalker
		}
		if fc.QoS != 0 && !flagSet["qos"] {
			*qosFlag = fc.QoS
		}
		if fc.KeepAlive != 0 && !flagSet["keepalive"] {
			*keepAlive = fc.KeepAlive
		}
	}

	cfg.TopicPrefix = normalizePrefix(*prefix)
	cfg.Always = *always
	cfg.DeadDelay = *deadTime
	cfg.DefTalker = strings.ToLower(*defTalker)
	if *messages != "" {
		cfg.MergeMsgs(*messages)
	}

	brokerHost := brokerHostOf(*host)
	qos := mqttclient.ResolveQoS(*qosFlag, brokerHost)

	willTopic := cfg.TopicPrefix + "alive"
	mqttOpts := mqttclient.Options{
		Broker:       "tcp://" + *host,
		ClientPrefix: "nmeamqtt",
		QoS:          qos,
		KeepAlive:    time.Duration(*keepAlive) * time.Second,
		WillTopic:    willTopic,
		WillPayload:  "crashed",
		WillQoS:      qos,
		WillRetained: true,
		Logger:       log,
	}
	client := mqttclient.New(mqttOpts)
	if err := client.Connect(); err != nil {
		fatalf(log, err, "connecting to broker %s", *host)
	}

	proc := bridge.NewProcessor(cfg, client, qos, log)
	proc.Resolver().OnPublishError = func(topic string, err error) {
		fatalf(log, err, "publishing %s", topic)
	}

	cfgTopic := cfg.TopicPrefix + "cfg/"
	controlMsgs := make(chan controlMsg, 16)
	if err := client.Subscribe(cfgTopic+"#", func(m mqttclient.Message) {
		controlMsgs <- controlMsg{subtopic: strings.TrimPrefix(m.Topic, cfgTopic), payload: m.Payload}
	}); err != nil {
		fatalf(log, err, "subscribing to %s#", cfgTopic)
	}

	source := "-"
	if flag.NArg() > 0 {
		source = flag.Arg(0)
	}
	reader, closer := openSource(source, log)
	defer closer()

	proc.Start(source)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	chunks := make(chan []byte, 16)
	readErrs := make(chan error, 1)
	go readLoop(reader, chunks, readErrs)

	deadline := time.NewTimer(proc.Liveness().Deadline())
	defer deadline.Stop()

	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				// Closed buffered channel: every chunk sent before EOF has
				// already been delivered (channel close preserves send
				// order), so it is now safe to shut down.
				log.Info("input exhausted, shutting down")
				shutdown(proc, client, log)
				return
			}
			proc.HandleInput(chunk)
			resetTimer(deadline, proc.Liveness().Deadline())

		case msg := <-controlMsgs:
			proc.HandleControlMessage(msg.subtopic, msg.payload)

		case err := <-readErrs:
			fatalf(log, err, "reading input from %s", source)

		case <-deadline.C:
			proc.HandleDeadlineExpired()
			deadline.Reset(proc.Liveness().Deadline())

		case <-sigCh:
			log.Info("shutting down")
			shutdown(proc, client, log)
			return
		}
	}
}

// controlMsg is one inbound "cfg/#" message, handed from the MQTT
// library's own callback goroutine to the actor loop below so that
// Processor's state is only ever mutated from that one goroutine.
type controlMsg struct {
	subtopic string
	payload  string
}

func readLoop(r *bufio.Reader, chunks chan<- []byte, errs chan<- error) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			chunks <- chunk
		}
		if err != nil {
			if err == io.EOF {
				close(chunks)
				return
			}
			errs <- err
			return
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

// shutdown runs the erase-then-self-sync-then-disconnect sequence so the
// broker has accepted every retained delete before the process exits.
func shutdown(proc *bridge.Processor, client mqttclient.Client, log logrus.FieldLogger) {
	proc.Shutdown()

	token := fmt.Sprintf("%d-%d-%d", os.Getpid(), time.Now().UnixNano(), rand.Int())
	sync := bridge.NewSelfSync(client, token)
	if err := sync.Start(); err != nil {
		log.WithError(err).Warn("self-sync handshake failed to start")
	} else {
		select {
		case <-sync.Done():
		case <-time.After(5 * time.Second):
			log.Warn("self-sync handshake timed out; disconnecting anyway")
		}
	}
	client.Disconnect()
}

// openSource opens the positional device/file argument, or standard
// input when it is "-" or absent. A path that names a known serial
// device is opened at the default GNSS baud rate via go.bug.st/serial,
// the same library hardware/topgnss depends on for raw port access;
// anything else is opened as a plain file.
func openSource(source string, log logrus.FieldLogger) (*bufio.Reader, func()) {
	if source == "-" {
		return bufio.NewReader(os.Stdin), func() {}
	}
	if looksLikeSerialPort(source) {
		mode := &serial.Mode{BaudRate: 9600}
		port, err := serial.Open(source, mode)
		if err != nil {
			fatalf(log, err, "opening serial port %s", source)
		}
		return bufio.NewReader(port), func() { _ = port.Close() }
	}
	f, err := os.Open(source)
	if err != nil {
		fatalf(log, err, "opening %s", source)
	}
	return bufio.NewReader(f), func() { _ = f.Close() }
}

func looksLikeSerialPort(path string) bool {
	return strings.HasPrefix(path, "/dev/tty") || strings.HasPrefix(path, "/dev/cu.") ||
		strings.HasPrefix(strings.ToUpper(path), "COM")
}

func normalizePrefix(p string) string {
	if p == "" {
		return p
	}
	if !strings.HasSuffix(p, "/") {
		return p + "/"
	}
	return p
}

// brokerHostOf strips an optional ":PORT" suffix from a -h flag value,
// matching the original's QoS auto-selection, which keys off the host
// alone.
func brokerHostOf(hostPort string) string {
	if idx := strings.LastIndexByte(hostPort, ':'); idx >= 0 {
		if _, err := strconv.Atoi(hostPort[idx+1:]); err == nil {
			return hostPort[:idx]
		}
	}
	return hostPort
}

// fatalf is the Go analogue of the original tool's combined
// mylog(LOG_ERR|LOG_EXIT, ...) helper: log at Error, then exit 1.
func fatalf(log logrus.FieldLogger, err error, format string, args ...interface{}) {
	log.WithError(err).Errorf(format, args...)
	os.Exit(1)
}
