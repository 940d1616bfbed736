// Package confloader loads configuration with koanf.
//
// Sources, later ones overriding earlier ones:
//
//  1. Defaults already present in the target struct
//  2. YAML configuration file
//  3. Environment variables (SHADOWHOME_ prefix)
//  4. Maps supplied with LoadMap (command-line flags, tests)
//
// Watcher reports changes of the configuration file through fsnotify so the
// server can apply hot-reloadable settings such as the log level.
package confloader
