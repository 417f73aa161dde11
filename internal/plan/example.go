// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package plan

// ExampleYAML is printed by `fleetrun config --format yaml`.
const ExampleYAML = `name: deploy-agent
description: Upload and restart the agent on every web node
user: admin
machines:
  - web-1
  - web-2
machines_file: machines.txt
stdout: logs/{machine}.out
stderr: logs/{machine}.err
steps:
  - type: upload
    name: push binary
    source: ./bin/agent
    destination: /tmp/agent
  - type: exec
    name: install
    command: sudo install -m 0755 /tmp/agent /usr/local/bin/agent
    timeout: 2m
  - type: exec
    name: restart
    command: sudo systemctl restart agent
    continue_on_error: true
`

// ExampleHCL is the HCL form of ExampleYAML.
const ExampleHCL = `name          = "deploy-agent"
description   = "Upload and restart the agent on every web node"
user          = "admin"
machines      = ["web-1", "web-2"]
machines_file = "machines.txt"
stdout        = "logs/{machine}.out"
stderr        = "logs/{machine}.err"

step "upload" {
  name        = "push binary"
  source      = "./bin/agent"
  destination = "/tmp/agent"
}

step "exec" {
  name    = "install"
  command = "sudo install -m 0755 /tmp/agent /usr/local/bin/agent"
  timeout = "2m"
}

step "exec" {
  name              = "restart"
  command           = "sudo systemctl restart agent"
  continue_on_error = true
}
`
