package inspector

// Version is the tool version, embedded in cards and server handshakes.
const Version = "0.2.0"
