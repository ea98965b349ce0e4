// Copyright (c) LanMirror Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 LanMirror 本机控制面 HTTP API 的请求处理器。

# 核心类型

  - HealthHandler   : 健康检查（/health, /healthz, /ready, /version）
  - StatusHandler   : 镜像状态查询、WebSocket 状态推送与启停控制
  - Response        : 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo       : 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter  : 包装 http.ResponseWriter 以捕获状态码与响应大小
  - HealthCheck     : 可插拔就绪检查接口

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON
  - ErrorCode → HTTP 状态码映射
  - 状态推送：/api/v1/status/stream 首先发送当前状态，随后推送每次变化
*/
package handlers
