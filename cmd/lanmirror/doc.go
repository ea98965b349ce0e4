// Copyright (c) LanMirror Authors.
// Licensed under the MIT License.

/*
Package main 提供 LanMirror 命令行入口。

# 概述

cmd/lanmirror 把内嵌（或 --bundle 指定）的 Web 应用暂存到临时目录，
在 0.0.0.0 上开启镜像服务，并在本机回环地址上提供控制面 API。

# 核心类型

  - Server     : 组装地址解析、资源暂存、镜像服务与控制面
  - Middleware : HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、stage、addr、health、version
  - 镜像中间件链：Recovery、RequestID、OTelTracing、MetricsMiddleware、
    RequestLogger、SecurityHeaders、RateLimiter（基于 IP，可选）
  - 控制面中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、CORS
  - 优雅关闭：信号 → 释放镜像服务 → 关闭控制面 → 刷新遥测
*/
package main
