// Package config provides configuration for the gigmarket console.
//
// The configuration is stored in gigmarket.json in the working directory.
// Environment variables override file values so the same file can be used
// across environments.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "host": "0.0.0.0",
//	    "port": 8080,
//	    "shutdownTimeout": "10s"
//	  },
//	  "backend": {
//	    "url": "https://api.gigmarket.dev",
//	    "timeout": "15s"
//	  },
//	  "session": {
//	    "redisUrl": "redis://localhost:6379/0",
//	    "resumeWindow": "30s"
//	  },
//	  "upload": {
//	    "backend": "minio",
//	    "bucket": "avatars",
//	    "endpoint": "localhost:9000"
//	  },
//	  "search": {
//	    "url": "http://localhost:7700",
//	    "index": "listings"
//	  },
//	  "views": {
//	    "maxStarred": 3,
//	    "pageSize": 10
//	  }
//	}
//
// # Environment Overrides
//
//	GIGMARKET_HOST, GIGMARKET_PORT, GIGMARKET_API_URL, GIGMARKET_LOG_LEVEL,
//	GIGMARKET_LOG_FORMAT, REDIS_URL, MEILI_URL, MEILI_API_KEY,
//	UPLOAD_BACKEND, S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_ACCESS_KEY,
//	S3_SECRET_KEY, MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Address())
package config
