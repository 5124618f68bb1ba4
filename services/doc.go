/*
# Namereg Services Package

The services package exposes the name registry over HTTP.

## Overview

NameService is a thin adapter: it decodes requests, calls into
registry.Registry, and maps the results onto status codes. All validation
happens inside Registry.ApplyUpdate under the registry's write lock.

## Endpoints

### Public

  - `GET  /`               - "hello world"
  - `GET  /id/{username}`  - base64 public key, 404 if unknown
  - `GET  /name/{name}`    - latest accepted UpdateMessage as JSON, 404 if unset
  - `POST /name/{name}`    - submit an UpdateMessage

POST /name/{name} answers:

  - 200 `ok` when the update was applied
  - 400 when the body is not exactly one UpdateMessage with all four fields
  - 403 with `UnknownUser(user)`, `MalformedSignature` or `InvalidSignature`

### Admin

Mounted under `/admin` only when an admin token (`user:pass`) is
configured, and protected by basic auth. Without a token, users can only be
registered at startup.

  - `POST /admin/id/{username}` - register `{"public_key": "..."}`, or
    generate a keypair when the body is empty
  - `GET  /admin/users`         - registered usernames
  - `GET  /admin/names`         - names with an entry
  - `GET  /admin/stats`         - table sizes

## Usage

```go
reg := registry.New()
svc := services.NewNameService(reg, &services.NameServiceConfig{
    Log:        logger,
    AdminToken: "admin:secret",
})

router := chi.NewRouter()
svc.RegisterRoutes(router)
http.ListenAndServe(":8080", router)
```
*/
package services
