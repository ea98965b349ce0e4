// Copyright (c) LanMirror Authors.
// Licensed under the MIT License.

/*
Package types 提供 LanMirror 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 mirror、assets、router、
api 等模块提供统一的错误契约。

# 核心类型

  - Error     : 结构化错误（Code、Message、HTTPStatus、Retryable、Cause）
  - ErrorCode : 统一错误码，覆盖启动、暂存、绑定与请求处理各阶段

# 错误分类

  - ErrPlatformUnsupported：当前平台无法绑定 socket，立即报告，不重试
  - ErrAddressUnavailable：找不到可用的局域网地址
  - ErrStagingFailed：资源暂存失败（入口文件缺失）
  - ErrBindConflict：端口被占用，可通过递增端口自动恢复
  - ErrBindFailed / ErrPortsExhausted：不可恢复的绑定失败
  - ErrRequestFailed：单个请求内部失败，仅影响该连接
*/
package types
