// Package config provides configuration parsing for chatui.
//
// The configuration is stored in chatui.json. This package handles
// loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "localhost",
//	    "port": 8000,
//	    "backend": "ollama",
//	    "ollamaURL": "http://localhost:11434",
//	    "writeTimeout": "10s"
//	  },
//	  "storage": {
//	    "dir": "data",
//	    "database": "chats"
//	  },
//	  "log": {
//	    "level": "debug",
//	    "format": "json"
//	  },
//	  "backup": {
//	    "bucket": "chatui-backups",
//	    "prefix": "nightly/",
//	    "region": "us-east-1"
//	  },
//	  "chat": {
//	    "model": "llama3.2",
//	    "titleLength": 20
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Server.Address())
package config
